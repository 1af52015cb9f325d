package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/scheduler"
)

var runOnStart bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the pipeline on the configured schedule",
	Long:  "Start the scheduler; blocks until SIGINT/SIGTERM. A run still in progress when the next tick fires makes that tick a no-op.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "run once immediately before waiting for the first tick")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	sched, err := scheduler.NewScheduler(cfg.Schedule, a.runOnce, runOnStart, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
