package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setMinimalBridgeEnv(t *testing.T, dbPath string) {
	t.Helper()
	t.Setenv("NC_BRIDGE_NEXTCLOUD_HOST", "https://cloud.example.com")
	t.Setenv("NC_BRIDGE_NEXTCLOUD_USERNAME", "alice")
	t.Setenv("NC_BRIDGE_NEXTCLOUD_PASSWORD", "hunter2")
	t.Setenv("NC_BRIDGE_MCP_SERVER_URL", "https://bridge.example.com")
	t.Setenv("NC_BRIDGE_TOKEN_ENCRYPTION_KEY", "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	t.Setenv("NC_BRIDGE_TOKEN_STORAGE_DB", dbPath)
}

func TestRunMigrate_OpensAndClosesStoreWithoutError(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bridge.db")
	setMinimalBridgeEnv(t, dbPath)

	require.NoError(t, runMigrate(""))
}

func TestRunMigrate_MissingConfigFails(t *testing.T) {
	err := runMigrate("")
	require.Error(t, err)
}
