// Package pipeline runs the four posting stages in order against one row store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage names, used in logs, reports and metrics.
const (
	StageFetch       = "fetch"
	StageTitleFilter = "title_filter"
	StageLocation    = "location"
	StageFitMatch    = "fit_match"
)

// StageReport summarizes one stage invocation.
type StageReport struct {
	Stage     string
	Eligible  int // rows (or sources, for fetch) the stage selected
	Processed int // items that produced a verdict
	Written   int // rows the store reports as inserted or changed
	Failed    int // items skipped after a per-item failure
	Duration  time.Duration
}

// Stage is one fetch, transform, write loop.
type Stage interface {
	Name() string
	Run(ctx context.Context) (StageReport, error)
}

// Observer receives every stage report, including the one of a failed stage.
type Observer interface {
	ObserveStage(report StageReport, err error)
}

// Pipeline runs its stages sequentially. The first stage error stops the run.
type Pipeline struct {
	stages   []Stage
	observer Observer
	logger   *slog.Logger
}

// New creates a pipeline. observer may be nil.
func New(logger *slog.Logger, observer Observer, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:   stages,
		observer: observer,
		logger:   logger,
	}
}

// Run executes every stage in order and returns the reports of the stages
// that ran.
func (p *Pipeline) Run(ctx context.Context) ([]StageReport, error) {
	reports := make([]StageReport, 0, len(p.stages))
	runStart := time.Now()

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return reports, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}

		p.logger.Info("stage started", "stage", stage.Name())
		start := time.Now()
		report, err := stage.Run(ctx)
		report.Stage = stage.Name()
		report.Duration = time.Since(start)
		reports = append(reports, report)

		if p.observer != nil {
			p.observer.ObserveStage(report, err)
		}

		if err != nil {
			p.logger.Error("stage failed",
				"stage", report.Stage,
				"duration", report.Duration.Round(time.Millisecond),
				"error", err,
			)
			return reports, fmt.Errorf("stage %s: %w", report.Stage, err)
		}

		p.logger.Info("stage finished",
			"stage", report.Stage,
			"eligible", report.Eligible,
			"processed", report.Processed,
			"written", report.Written,
			"failed", report.Failed,
			"duration", report.Duration.Round(time.Millisecond),
		)
	}

	p.logger.Info("run finished", "stages", len(reports), "duration", time.Since(runStart).Round(time.Millisecond))
	return reports, nil
}

// windowStart returns the lower published_at bound for a window, or the zero
// time when window is not positive.
func windowStart(now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return now.Add(-window)
}
