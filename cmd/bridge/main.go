// Package main is the entry point for the nc-bridge server.
package main

import (
	"fmt"
	"os"

	"github.com/stacklok/nc-bridge/cmd/bridge/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
