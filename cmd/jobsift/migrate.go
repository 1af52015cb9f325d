package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the postings table",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Store.Driver == "postgres" {
		if err := store.Migrate(cfg.Store.DSN, logger); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		return nil
	}

	// SQLite creates its schema on open.
	db, err := store.NewSQLiteStore(cfg.Store.DSN)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("sqlite schema ready", "path", cfg.Store.DSN)
	return nil
}
