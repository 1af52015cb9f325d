package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobsift/internal/batch"
	"github.com/amishk599/jobsift/internal/model"
)

// LocationClassifier answers whether a location is in the USA or remote.
type LocationClassifier interface {
	Classify(ctx context.Context, location string) (bool, error)
}

// ChunkConfig bounds how the LLM stages batch and fan out.
type ChunkConfig struct {
	Concurrency int
	BatchSize   int
	Window      time.Duration
}

// LocationStage classifies the location of every title-qualified row.
type LocationStage struct {
	store      model.PostingStore
	classifier LocationClassifier
	cfg        ChunkConfig
	now        func() time.Time
	logger     *slog.Logger
}

// NewLocationStage creates the location stage.
func NewLocationStage(store model.PostingStore, classifier LocationClassifier, cfg ChunkConfig, logger *slog.Logger) *LocationStage {
	return &LocationStage{
		store:      store,
		classifier: classifier,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *LocationStage) Name() string { return StageLocation }

// Run classifies rows chunk by chunk. Per-row failures leave the row NULL;
// each chunk's verdicts are committed before the next chunk starts.
func (s *LocationStage) Run(ctx context.Context) (StageReport, error) {
	rows, err := s.store.Select(ctx, model.LocationPending(windowStart(s.now(), s.cfg.Window)))
	if err != nil {
		return StageReport{}, fmt.Errorf("selecting unlocated postings: %w", err)
	}

	report := StageReport{Eligible: len(rows)}
	inUSA := 0
	for _, chunk := range batch.Chunk(rows, s.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		results := batch.Run(ctx, chunk, s.cfg.Concurrency, func(ctx context.Context, p model.Posting) (bool, error) {
			return s.classifier.Classify(ctx, p.Location)
		})

		updates := make([]model.Update, 0, len(results))
		for _, r := range results {
			if r.Err != nil {
				report.Failed++
				s.logger.Warn("location classification failed",
					"job_id", r.Item.JobID,
					"source", r.Item.Source,
					"error", r.Err,
				)
				continue
			}
			if r.Value {
				inUSA++
			}
			updates = append(updates, model.Update{
				Key:    r.Item.Key(),
				Fields: model.Fields{InUSA: model.Bool(r.Value)},
			})
		}
		report.Processed += len(updates)

		n, err := s.store.Update(ctx, updates)
		if err != nil {
			return report, fmt.Errorf("writing location verdicts: %w", err)
		}
		report.Written += n
	}

	s.logger.Info("location summary", "classified", report.Processed, "in_usa", inUSA, "failed", report.Failed)
	return report, nil
}
