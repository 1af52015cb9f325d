package store

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobsift/internal/model"
)

// Ensure DryRunStore implements model.PostingStore.
var _ model.PostingStore = (*DryRunStore)(nil)

// DryRunStore reads through to a real store but never writes. Inserts and
// updates are logged and reported as if applied, so a dry run shows what a
// real run would change.
type DryRunStore struct {
	inner  model.PostingStore
	logger *slog.Logger
}

// NewDryRunStore wraps inner.
func NewDryRunStore(inner model.PostingStore, logger *slog.Logger) *DryRunStore {
	return &DryRunStore{inner: inner, logger: logger}
}

func (s *DryRunStore) Select(ctx context.Context, p model.Predicate) ([]model.Posting, error) {
	return s.inner.Select(ctx, p)
}

func (s *DryRunStore) KnownIDs(ctx context.Context, source string) (map[string]struct{}, error) {
	return s.inner.KnownIDs(ctx, source)
}

// InsertNew logs each posting and reports all of them as inserted.
func (s *DryRunStore) InsertNew(_ context.Context, postings []model.Posting) (int, error) {
	for _, p := range postings {
		s.logger.Debug("dry-run insert", "source", p.Source, "job_id", p.JobID, "title", p.Title)
	}
	s.logger.Info("dry-run: skipped insert", "rows", len(postings))
	return len(postings), nil
}

// Update logs each update and reports all of them as applied.
func (s *DryRunStore) Update(_ context.Context, updates []model.Update) (int, error) {
	for _, u := range updates {
		s.logger.Debug("dry-run update", "source", u.Key.Source, "job_id", u.Key.JobID)
	}
	s.logger.Info("dry-run: skipped update", "rows", len(updates))
	return len(updates), nil
}
