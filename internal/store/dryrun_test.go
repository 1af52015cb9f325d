package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

func TestDryRunStoreNeverWrites(t *testing.T) {
	inner := newTestStore(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewDryRunStore(inner, logger)

	n, err := s.InsertNew(ctx, []model.Posting{posting("1", "acme", "Data Engineer", time.Now())})
	if err != nil {
		t.Fatalf("InsertNew: %v", err)
	}
	if n != 1 {
		t.Errorf("reported inserts = %d, want 1", n)
	}

	rows, err := s.Select(ctx, model.Predicate{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("dry run wrote %d rows", len(rows))
	}
}

func TestDryRunStoreReadsThrough(t *testing.T) {
	inner := newTestStore(t)
	ctx := context.Background()
	if _, err := inner.InsertNew(ctx, []model.Posting{posting("1", "acme", "Data Engineer", time.Now())}); err != nil {
		t.Fatalf("InsertNew: %v", err)
	}

	s := NewDryRunStore(inner, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := s.Update(ctx, []model.Update{{
		Key:    model.Key{JobID: "1", Source: "acme"},
		Fields: model.Fields{TitleFiltered: model.Bool(true)},
	}}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	ids, err := s.KnownIDs(ctx, "acme")
	if err != nil {
		t.Fatalf("KnownIDs: %v", err)
	}
	if _, ok := ids["1"]; !ok {
		t.Error("expected id 1 to be known")
	}

	rows, err := s.Select(ctx, model.TitleFilterPending(time.Time{}))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("dry-run update leaked to store: pending rows = %d", len(rows))
	}
}
