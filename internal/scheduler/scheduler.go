package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// RunFunc performs one pipeline run.
type RunFunc func(ctx context.Context) error

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler triggers a run on a cron expression. Runs never overlap: a tick
// that fires while the previous run is still going is skipped.
type Scheduler struct {
	spec       string
	run        RunFunc
	runOnStart bool
	logger     *slog.Logger
}

// NewScheduler validates spec and returns a scheduler for run.
func NewScheduler(spec string, run RunFunc, runOnStart bool, logger *slog.Logger) (*Scheduler, error) {
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return &Scheduler{
		spec:       spec,
		run:        run,
		runOnStart: runOnStart,
		logger:     logger,
	}, nil
}

// Run blocks until ctx is cancelled, then waits for an in-flight run to
// finish. It returns nil on graceful shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	l := cronLogger{s.logger}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)

	id, err := c.AddFunc(s.spec, func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.run(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling %q: %w", s.spec, err)
	}
	// The wrapped job carries the skip chain, so a run-on-start and the first
	// tick cannot overlap either.
	job := c.Entry(id).WrappedJob

	s.logger.Info("starting scheduler", "schedule", s.spec, "run_on_start", s.runOnStart)
	c.Start()
	if s.runOnStart {
		go job.Run()
	}

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
