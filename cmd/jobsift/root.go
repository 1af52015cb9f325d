package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/config"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/notifier"
	"github.com/amishk599/jobsift/internal/store"
)

var (
	cfgPath  string
	debug    bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsift",
	Short: "Sift job boards down to the postings worth applying to",
	Long: "jobsift fetches Greenhouse job boards into a local table, filters titles by keyword, " +
		"asks an LLM whether each location is US-eligible and scores the survivors against your resume.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIFT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "log as JSON")
}

// loadConfig resolves the config path and parses it.
// Priority: --config > JOBSIFT_CONFIG env var > "./config.yaml"
func loadConfig() (*config.Config, error) {
	return config.Load(config.ResolvePath(cfgPath))
}

func setupLogger() *slog.Logger {
	return newLogger(os.Stdout, debug, jsonLogs)
}

func newLogger(w io.Writer, dbg, asJSON bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, &http.Client{Timeout: 30 * time.Second}, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// runNotifier is setupNotifier for pipeline runs. Dry runs only log strong
// matches, since the rows they report are never written.
func runNotifier(cfg *config.Config, logger *slog.Logger, dryRun bool) model.Notifier {
	if dryRun {
		return notifier.NewLogNotifier(logger)
	}
	return setupNotifier(cfg, logger)
}

// rowStore is a PostingStore backed by an open database.
type rowStore interface {
	model.PostingStore
	Close() error
}

// openStore opens the configured backend. Postgres is migrated to the latest
// schema first; SQLite creates its schema on open.
func openStore(cfg *config.Config, logger *slog.Logger) (rowStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if err := store.Migrate(cfg.Store.DSN, logger); err != nil {
			return nil, err
		}
		s, err := store.NewPostgresStore(cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
