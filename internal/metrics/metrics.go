// Package metrics records pipeline stage reports as Prometheus metrics and
// optionally pushes them to a Pushgateway when a run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/amishk599/jobsift/internal/pipeline"
)

const namespace = "jobsift"

// Ensure Recorder implements pipeline.Observer.
var _ pipeline.Observer = (*Recorder)(nil)

// Recorder holds the pipeline metrics in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	StageRows     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Gauge
	LastSuccess   prometheus.Gauge
}

// NewRecorder creates and registers all metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		StageRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_rows_total",
			Help:      "Rows seen by each stage, by outcome (eligible, processed, written, failed).",
		}, []string{"stage", "outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each stage.",
			Buckets:   []float64{0.5, 1, 5, 15, 60, 300, 900, 1800},
		}, []string{"stage"}),
		StageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Stage-level failures that aborted a run.",
		}, []string{"stage"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by status.",
		}, []string{"status"}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the most recent run.",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed every stage.",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records one stage report.
func (r *Recorder) ObserveStage(report pipeline.StageReport, err error) {
	r.StageRows.WithLabelValues(report.Stage, "eligible").Add(float64(report.Eligible))
	r.StageRows.WithLabelValues(report.Stage, "processed").Add(float64(report.Processed))
	r.StageRows.WithLabelValues(report.Stage, "written").Add(float64(report.Written))
	r.StageRows.WithLabelValues(report.Stage, "failed").Add(float64(report.Failed))
	r.StageDuration.WithLabelValues(report.Stage).Observe(report.Duration.Seconds())
	if err != nil {
		r.StageErrors.WithLabelValues(report.Stage).Inc()
	}
}

// ObserveRun records the outcome of a whole run.
func (r *Recorder) ObserveRun(d time.Duration, err error) {
	r.RunDuration.Set(d.Seconds())
	if err != nil {
		r.Runs.WithLabelValues("failed").Inc()
		return
	}
	r.Runs.WithLabelValues("succeeded").Inc()
	r.LastSuccess.SetToCurrentTime()
}

// Push sends every metric to the Pushgateway at url under job, replacing the
// previous push for that job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
