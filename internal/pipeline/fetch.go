package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobsift/internal/batch"
	"github.com/amishk599/jobsift/internal/model"
)

// FetchConfig controls the fetch stage.
type FetchConfig struct {
	Sources     []string
	Lookback    time.Duration
	Concurrency int
	BatchSize   int
}

// FetchStage lists every source board and inserts postings not yet stored.
type FetchStage struct {
	fetcher model.SourceFetcher
	store   model.PostingStore
	cfg     FetchConfig
	now     func() time.Time
	logger  *slog.Logger
}

// NewFetchStage creates the fetch stage.
func NewFetchStage(fetcher model.SourceFetcher, store model.PostingStore, cfg FetchConfig, logger *slog.Logger) *FetchStage {
	return &FetchStage{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *FetchStage) Name() string { return StageFetch }

// storeError marks a failure that must abort the stage rather than skip a source.
type storeError struct{ err error }

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

type sourceResult struct {
	recent   int
	postings []model.Posting
}

// Run fetches all sources concurrently. A failing source is logged and
// skipped; a store failure aborts the stage.
func (s *FetchStage) Run(ctx context.Context) (StageReport, error) {
	report := StageReport{Eligible: len(s.cfg.Sources)}
	cutoff := s.now().Add(-s.cfg.Lookback)

	results := batch.Run(ctx, s.cfg.Sources, s.cfg.Concurrency, func(ctx context.Context, source string) (sourceResult, error) {
		return s.fetchSource(ctx, source, cutoff)
	})

	seen := make(map[model.Key]struct{})
	var fresh []model.Posting
	for _, r := range results {
		if r.Err != nil {
			var se *storeError
			if errors.As(r.Err, &se) {
				return report, se.err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.Failed++
			s.logger.Warn("source fetch failed", "source", r.Item, "error", r.Err)
			continue
		}

		report.Processed += r.Value.recent
		for _, p := range r.Value.postings {
			if _, dup := seen[p.Key()]; dup {
				continue
			}
			seen[p.Key()] = struct{}{}
			fresh = append(fresh, p)
		}
	}

	for _, chunk := range batch.Chunk(fresh, s.cfg.BatchSize) {
		n, err := s.store.InsertNew(ctx, chunk)
		if err != nil {
			return report, fmt.Errorf("inserting postings: %w", err)
		}
		report.Written += n
	}

	s.logger.Info("fetch summary",
		"sources", len(s.cfg.Sources),
		"failed_sources", report.Failed,
		"recent", report.Processed,
		"new", len(fresh),
		"inserted", report.Written,
	)
	return report, nil
}

func (s *FetchStage) fetchSource(ctx context.Context, source string, cutoff time.Time) (sourceResult, error) {
	postings, err := s.fetcher.FetchPostings(ctx, source)
	if err != nil {
		return sourceResult{}, err
	}

	recent := make([]model.Posting, 0, len(postings))
	for _, p := range postings {
		if !p.PublishedAt.Before(cutoff) {
			recent = append(recent, p)
		}
	}
	if len(recent) == 0 {
		return sourceResult{}, nil
	}

	known, err := s.store.KnownIDs(ctx, source)
	if err != nil {
		return sourceResult{}, &storeError{err: err}
	}

	res := sourceResult{recent: len(recent)}
	for _, p := range recent {
		if _, ok := known[p.JobID]; !ok {
			res.postings = append(res.postings, p)
		}
	}

	s.logger.Debug("source fetched",
		"source", source,
		"listed", len(postings),
		"recent", len(recent),
		"new", len(res.postings),
	)
	return res, nil
}
