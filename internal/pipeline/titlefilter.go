package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobsift/internal/batch"
	"github.com/amishk599/jobsift/internal/model"
)

// TitleMatcher decides whether a posting's title qualifies.
type TitleMatcher interface {
	Match(p model.Posting) bool
}

// TitleFilterStage classifies every unclassified row by title, in memory.
type TitleFilterStage struct {
	store     model.PostingStore
	matcher   TitleMatcher
	window    time.Duration
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// NewTitleFilterStage creates the title stage. A non-positive window means
// every unclassified row is eligible.
func NewTitleFilterStage(store model.PostingStore, matcher TitleMatcher, window time.Duration, batchSize int, logger *slog.Logger) *TitleFilterStage {
	return &TitleFilterStage{
		store:     store,
		matcher:   matcher,
		window:    window,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *TitleFilterStage) Name() string { return StageTitleFilter }

func (s *TitleFilterStage) Run(ctx context.Context) (StageReport, error) {
	rows, err := s.store.Select(ctx, model.TitleFilterPending(windowStart(s.now(), s.window)))
	if err != nil {
		return StageReport{}, fmt.Errorf("selecting unfiltered postings: %w", err)
	}

	report := StageReport{Eligible: len(rows)}
	updates := make([]model.Update, 0, len(rows))
	passed := 0
	for _, p := range rows {
		ok := s.matcher.Match(p)
		if ok {
			passed++
		}
		updates = append(updates, model.Update{
			Key:    p.Key(),
			Fields: model.Fields{TitleFiltered: model.Bool(ok)},
		})
	}
	report.Processed = len(updates)

	for _, chunk := range batch.Chunk(updates, s.batchSize) {
		n, err := s.store.Update(ctx, chunk)
		if err != nil {
			return report, fmt.Errorf("writing title verdicts: %w", err)
		}
		report.Written += n
	}

	s.logger.Info("title filter summary", "classified", len(rows), "passed", passed, "rejected", len(rows)-passed)
	return report, nil
}
