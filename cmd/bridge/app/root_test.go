package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "healthcheck"}, names)
}

func TestNewRootCmd_ConfigFlagIsPersistent(t *testing.T) {
	root := NewRootCmd()

	flag := root.PersistentFlags().Lookup("config")
	assert.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}
