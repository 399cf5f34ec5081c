// Package app wires nc-bridge's cobra command tree: serve starts the
// HTTP server, migrate runs pending database migrations standalone, and
// healthcheck probes a running instance's liveness endpoint.
package app

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the nc-bridge command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "nc-bridge",
		Short: "nc-bridge exposes a Nextcloud instance as an MCP server",
		Long: `nc-bridge bridges the Model Context Protocol to a Nextcloud instance:
it resolves OAuth or Basic credentials per request, proxies WebDAV and
Notes operations over an authenticated upstream client, and enforces
per-tool scopes declared against the caller's verified token.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML/TOML config file (env vars under NC_BRIDGE_ take precedence)")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newMigrateCmd(&configPath))
	rootCmd.AddCommand(newHealthcheckCmd())

	return rootCmd
}
