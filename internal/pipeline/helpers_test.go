package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory model.PostingStore with the same guard semantics
// as the SQL stores.
type memStore struct {
	mu        sync.Mutex
	rows      map[model.Key]model.Posting
	selectErr error
	updateErr error
	updates   int // Update calls

	// beforeUpdate runs under the lock ahead of the next Update, standing in
	// for a concurrent writer.
	beforeUpdate func(rows map[model.Key]model.Posting)
}

func newMemStore(seed ...model.Posting) *memStore {
	s := &memStore{rows: make(map[model.Key]model.Posting)}
	for _, p := range seed {
		s.rows[p.Key()] = p
	}
	return s
}

func (s *memStore) Select(_ context.Context, pred model.Predicate) ([]model.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	var out []model.Posting
	for _, p := range s.rows {
		if pred.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out, nil
}

func (s *memStore) KnownIDs(_ context.Context, source string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]struct{})
	for k := range s.rows {
		if k.Source == source {
			ids[k.JobID] = struct{}{}
		}
	}
	return ids, nil
}

func (s *memStore) InsertNew(_ context.Context, postings []model.Posting) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range postings {
		if _, ok := s.rows[p.Key()]; ok {
			continue
		}
		p.FetchedAt = time.Now()
		s.rows[p.Key()] = p
		n++
	}
	return n, nil
}

func (s *memStore) Update(_ context.Context, updates []model.Update) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.beforeUpdate != nil {
		s.beforeUpdate(s.rows)
		s.beforeUpdate = nil
	}
	if s.updateErr != nil {
		return 0, s.updateErr
	}
	n := 0
	for _, u := range updates {
		p, ok := s.rows[u.Key]
		if !ok {
			continue
		}
		f := u.Fields
		if (f.TitleFiltered != nil && p.TitleFiltered != nil) ||
			(f.InUSA != nil && p.InUSA != nil) ||
			(f.FitScore != nil && p.FitScore != nil) ||
			(f.VisaSponsor != nil && p.VisaSponsor != nil) {
			continue
		}
		if f.TitleFiltered != nil {
			p.TitleFiltered = f.TitleFiltered
		}
		if f.InUSA != nil {
			p.InUSA = f.InUSA
		}
		if f.FitScore != nil {
			p.FitScore = f.FitScore
		}
		if f.VisaSponsor != nil {
			p.VisaSponsor = f.VisaSponsor
		}
		if f.Reason != nil {
			p.Reason = *f.Reason
		}
		s.rows[u.Key] = p
		n++
	}
	return n, nil
}

func (s *memStore) get(jobID, source string) model.Posting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[model.Key{JobID: jobID, Source: source}]
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// fakeFetcher serves canned postings per source.
type fakeFetcher struct {
	mu       sync.Mutex
	postings map[string][]model.Posting
	errs     map[string]error
	calls    map[string]int
}

func (f *fakeFetcher) FetchPostings(_ context.Context, source string) ([]model.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[source]++
	if err := f.errs[source]; err != nil {
		return nil, err
	}
	return f.postings[source], nil
}

// scriptedProvider answers LLM prompts by looking for a marker in the prompt.
type scriptedProvider struct {
	mu      sync.Mutex
	answers map[string]string // substring of prompt -> answer
	fail    map[string]error  // substring of prompt -> error
	calls   int
}

func (p *scriptedProvider) Complete(_ context.Context, prompt ai.Prompt) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	for marker, err := range p.fail {
		if strings.Contains(prompt.User, marker) {
			return "", err
		}
	}
	for marker, answer := range p.answers {
		if strings.Contains(prompt.User, marker) {
			return answer, nil
		}
	}
	return "", errors.New("no scripted answer")
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// recordingNotifier captures notified postings.
type recordingNotifier struct {
	mu       sync.Mutex
	postings []model.Posting
	err      error
}

func (n *recordingNotifier) Notify(postings []model.Posting) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.postings = append(n.postings, postings...)
	return n.err
}

func newPosting(id, source, title, location string, published time.Time) model.Posting {
	return model.Posting{
		JobID:       id,
		Source:      source,
		Title:       title,
		Location:    location,
		PublishedAt: published,
		Description: "Description of " + title,
	}
}
