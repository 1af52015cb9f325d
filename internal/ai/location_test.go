package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/amishk599/jobsift/internal/model"
)

// mockProvider is a stub LLMProvider that records prompts.
type mockProvider struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []Prompt
}

func (m *mockProvider) Complete(_ context.Context, p Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, p)
	return m.response, m.err
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassify_Answers(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
		wantErr  error
	}{
		{"plain yes", "Yes", true, nil},
		{"lower no with period", "no.", false, nil},
		{"quoted", `"Yes"`, true, nil},
		{"bold markdown", "**No**", false, nil},
		{"malformed", "Maybe", false, model.ErrMalformedResponse},
		{"empty", "", false, model.ErrMalformedResponse},
		{"yes with explanation", "Yes, remote within the US", true, nil},
		{"not sure", "Not sure", false, model.ErrMalformedResponse},
		{"none", "None", false, model.ErrMalformedResponse},
		{"none of the listed", "None of the listed", false, model.ErrMalformedResponse},
		{"nowhere", "Nowhere specified", false, model.ErrMalformedResponse},
		{"yesterday", "Yesterday", false, model.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{response: tt.response}
			c := NewLocationClassifier(provider, LocationTemplate, nil, discardLogger())

			got, err := c.Classify(context.Background(), "Berlin, Germany")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify_EmptyLocationSkipsModel(t *testing.T) {
	provider := &mockProvider{response: "Yes"}
	c := NewLocationClassifier(provider, LocationTemplate, NewMemoryCache(), discardLogger())

	got, err := c.Classify(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("empty location should be No")
	}
	if provider.calls() != 0 {
		t.Errorf("provider called %d times for empty location", provider.calls())
	}
}

func TestClassify_CachesByNormalizedLocation(t *testing.T) {
	provider := &mockProvider{response: "Yes"}
	c := NewLocationClassifier(provider, LocationTemplate, NewMemoryCache(), discardLogger())
	ctx := context.Background()

	for _, loc := range []string{"Remote - US", "remote -  us", " REMOTE - US"} {
		got, err := c.Classify(ctx, loc)
		if err != nil {
			t.Fatalf("Classify(%q): %v", loc, err)
		}
		if !got {
			t.Errorf("Classify(%q) = false", loc)
		}
	}
	if provider.calls() != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls())
	}
}

func TestClassify_FailureNotCached(t *testing.T) {
	provider := &mockProvider{err: errors.New("timeout")}
	cache := NewMemoryCache()
	c := NewLocationClassifier(provider, LocationTemplate, cache, discardLogger())

	if _, err := c.Classify(context.Background(), "Austin, TX"); err == nil {
		t.Fatal("expected provider error")
	}
	if _, ok, _ := cache.Get(context.Background(), "austin, tx"); ok {
		t.Error("failed classification was cached")
	}
}

func TestClassify_PromptContainsLocation(t *testing.T) {
	provider := &mockProvider{response: "No"}
	c := NewLocationClassifier(provider, LocationTemplate, nil, discardLogger())

	if _, err := c.Classify(context.Background(), "Toronto, Canada"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := provider.prompts[0]
	if !strings.Contains(p.User, `Location: "Toronto, Canada"`) {
		t.Errorf("prompt missing location:\n%s", p.User)
	}
	if p.Schema != nil {
		t.Error("location prompt should be free text")
	}
}
