package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/model"
)

func titlePassed(p model.Posting) model.Posting {
	p.TitleFiltered = model.Bool(true)
	return p
}

func TestLocationStage_IsolatesPerItemFailure(t *testing.T) {
	now := time.Now()
	store := newMemStore(
		titlePassed(newPosting("1", "acme", "Data Analyst", "Austin, TX", now)),
		titlePassed(newPosting("2", "acme", "Data Analyst", "Remote", now)),
		titlePassed(newPosting("3", "acme", "Data Analyst", "London, UK", now)),
		titlePassed(newPosting("4", "acme", "Data Analyst", "Timeout City", now)),
		titlePassed(newPosting("5", "acme", "Data Analyst", "Berlin, Germany", now)),
	)
	provider := &scriptedProvider{
		answers: map[string]string{
			`"Austin, TX"`:      "Yes",
			`"Remote"`:          "Yes",
			`"London, UK"`:      "No",
			`"Berlin, Germany"`: "No",
		},
		fail: map[string]error{`"Timeout City"`: context.DeadlineExceeded},
	}
	classifier := ai.NewLocationClassifier(provider, ai.LocationTemplate, nil, discardLogger())

	stage := NewLocationStage(store, classifier, ChunkConfig{Concurrency: 5, BatchSize: 50}, discardLogger())
	report, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Eligible != 5 || report.Written != 4 || report.Failed != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if store.get("4", "acme").InUSA != nil {
		t.Error("failed row should stay unset")
	}
	want := map[string]bool{"1": true, "2": true, "3": false, "5": false}
	for id, w := range want {
		got := store.get(id, "acme").InUSA
		if got == nil || *got != w {
			t.Errorf("row %s in_usa = %v, want %v", id, got, w)
		}
	}
}

func TestLocationStage_RetriesOnlyUnsetRowsNextRun(t *testing.T) {
	now := time.Now()
	store := newMemStore(
		titlePassed(newPosting("1", "acme", "Data Analyst", "Remote", now)),
		titlePassed(newPosting("2", "acme", "Data Analyst", "Flaky, NY", now)),
	)
	provider := &scriptedProvider{
		answers: map[string]string{`"Remote"`: "Yes"},
		fail:    map[string]error{`"Flaky, NY"`: errors.New("rate limited")},
	}
	classifier := ai.NewLocationClassifier(provider, ai.LocationTemplate, nil, discardLogger())
	stage := NewLocationStage(store, classifier, ChunkConfig{Concurrency: 2, BatchSize: 1}, discardLogger())

	if _, err := stage.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	provider.mu.Lock()
	provider.calls = 0
	delete(provider.fail, `"Flaky, NY"`)
	provider.answers[`"Flaky, NY"`] = "Yes"
	provider.mu.Unlock()

	report, err := stage.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Eligible != 1 || report.Written != 1 {
		t.Errorf("second run report: %+v", report)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1", provider.callCount())
	}
}

func TestLocationStage_GatedOnTitle(t *testing.T) {
	now := time.Now()
	rejected := newPosting("1", "acme", "Designer", "Remote", now)
	rejected.TitleFiltered = model.Bool(false)
	store := newMemStore(rejected, newPosting("2", "acme", "Data Analyst", "Remote", now))
	provider := &scriptedProvider{answers: map[string]string{`"Remote"`: "Yes"}}
	classifier := ai.NewLocationClassifier(provider, ai.LocationTemplate, nil, discardLogger())

	report, err := NewLocationStage(store, classifier, ChunkConfig{Concurrency: 2, BatchSize: 10}, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Eligible != 0 || provider.callCount() != 0 {
		t.Errorf("rows without a title pass were classified: %+v", report)
	}
}

func TestLocationStage_EmptyLocationIsNoWithoutCall(t *testing.T) {
	store := newMemStore(titlePassed(newPosting("1", "acme", "Data Analyst", "", time.Now())))
	provider := &scriptedProvider{}
	classifier := ai.NewLocationClassifier(provider, ai.LocationTemplate, nil, discardLogger())

	if _, err := NewLocationStage(store, classifier, ChunkConfig{Concurrency: 1, BatchSize: 10}, discardLogger()).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v := store.get("1", "acme").InUSA; v == nil || *v {
		t.Errorf("in_usa = %v, want false", v)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider called %d times", provider.callCount())
	}
}

func TestLocationStage_UpdateErrorIsFatal(t *testing.T) {
	store := newMemStore(titlePassed(newPosting("1", "acme", "Data Analyst", "Remote", time.Now())))
	store.updateErr = errors.New("connection reset")
	provider := &scriptedProvider{answers: map[string]string{`"Remote"`: "Yes"}}
	classifier := ai.NewLocationClassifier(provider, ai.LocationTemplate, nil, discardLogger())

	if _, err := NewLocationStage(store, classifier, ChunkConfig{Concurrency: 1, BatchSize: 10}, discardLogger()).Run(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
}
