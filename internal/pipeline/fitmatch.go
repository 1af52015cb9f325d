package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/batch"
	"github.com/amishk599/jobsift/internal/model"
)

// FitMatcher scores a posting against the resume text.
type FitMatcher interface {
	Match(ctx context.Context, p model.Posting, resume string) (ai.FitResult, error)
}

// FitMatchConfig controls the fit stage.
type FitMatchConfig struct {
	ChunkConfig
	NotifyThreshold int
}

// FitMatchStage scores every location-qualified row and notifies about strong
// matches scored in this run.
type FitMatchStage struct {
	store      model.PostingStore
	matcher    FitMatcher
	loadResume func() (string, error)
	notifier   model.Notifier
	cfg        FitMatchConfig
	now        func() time.Time
	logger     *slog.Logger
}

// NewFitMatchStage creates the fit stage. loadResume is called once per run;
// notifier may be nil.
func NewFitMatchStage(
	store model.PostingStore,
	matcher FitMatcher,
	loadResume func() (string, error),
	notifier model.Notifier,
	cfg FitMatchConfig,
	logger *slog.Logger,
) *FitMatchStage {
	return &FitMatchStage{
		store:      store,
		matcher:    matcher,
		loadResume: loadResume,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *FitMatchStage) Name() string { return StageFitMatch }

// Run loads the resume, then scores rows chunk by chunk. A missing resume
// fails this stage only.
func (s *FitMatchStage) Run(ctx context.Context) (StageReport, error) {
	resumeText, err := s.loadResume()
	if err != nil {
		return StageReport{}, err
	}

	rows, err := s.store.Select(ctx, model.FitMatchPending(windowStart(s.now(), s.cfg.Window)))
	if err != nil {
		return StageReport{}, fmt.Errorf("selecting unscored postings: %w", err)
	}

	report := StageReport{Eligible: len(rows)}
	var strong []model.Posting
	for _, chunk := range batch.Chunk(rows, s.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		results := batch.Run(ctx, chunk, s.cfg.Concurrency, func(ctx context.Context, p model.Posting) (ai.FitResult, error) {
			return s.matcher.Match(ctx, p, resumeText)
		})

		// Strong matches are written one at a time; only rows whose own
		// update lands are notified.
		var updates []model.Update
		var candidates []model.Posting
		for _, r := range results {
			if r.Err != nil {
				report.Failed++
				s.logger.Warn("fit match failed",
					"job_id", r.Item.JobID,
					"source", r.Item.Source,
					"error", r.Err,
				)
				continue
			}
			p := r.Item
			p.FitScore = model.Int(r.Value.Score)
			p.VisaSponsor = model.Bool(r.Value.VisaSponsor)
			p.Reason = r.Value.Reason
			if r.Value.Score >= s.cfg.NotifyThreshold {
				candidates = append(candidates, p)
				continue
			}
			updates = append(updates, scoreUpdate(p))
		}
		report.Processed += len(updates) + len(candidates)

		n, err := s.store.Update(ctx, updates)
		if err != nil {
			return report, fmt.Errorf("writing fit scores: %w", err)
		}
		report.Written += n

		for _, p := range candidates {
			n, err := s.store.Update(ctx, []model.Update{scoreUpdate(p)})
			if err != nil {
				return report, fmt.Errorf("writing fit scores: %w", err)
			}
			report.Written += n
			if n == 0 {
				s.logger.Debug("fit score already set, skipping notification", "job_id", p.JobID, "source", p.Source)
				continue
			}
			strong = append(strong, p)
		}
	}

	s.logger.Info("fit match summary", "scored", report.Processed, "strong", len(strong), "failed", report.Failed)
	s.notify(strong)
	return report, nil
}

func scoreUpdate(p model.Posting) model.Update {
	return model.Update{
		Key: p.Key(),
		Fields: model.Fields{
			FitScore:    p.FitScore,
			VisaSponsor: p.VisaSponsor,
			Reason:      model.String(p.Reason),
		},
	}
}

func (s *FitMatchStage) notify(strong []model.Posting) {
	if s.notifier == nil || len(strong) == 0 {
		return
	}
	if err := s.notifier.Notify(strong); err != nil {
		s.logger.Error("notifying strong matches", "count", len(strong), "error", err)
	}
}
