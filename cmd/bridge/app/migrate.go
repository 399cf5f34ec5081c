package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacklok/nc-bridge/internal/config"
	"github.com/stacklok/nc-bridge/internal/cryptobox"
	logger "github.com/stacklok/nc-bridge/internal/logging"
	"github.com/stacklok/nc-bridge/internal/storage"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run pending database migrations and exit",
		Long: `Opens the configured storage database, which runs every pending
migration idempotently, then closes it without starting the server. Useful
as a one-shot init step ahead of a deployment.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigrate(*configPath)
		},
	}
}

func runMigrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	box, err := cryptobox.NewBox(cfg.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("initializing encryption box: %w", err)
	}

	store, err := storage.Open(cfg.TokenStorageDB, box)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warnw("error closing storage", "error", cerr)
		}
	}()

	logger.Infow("migrations applied", "database", cfg.TokenStorageDB)
	return nil
}
