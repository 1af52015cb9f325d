package model

import (
	"context"
	"time"
)

// Key identifies a posting row. Job IDs are only unique within a source board.
type Key struct {
	JobID  string
	Source string
}

// Unified representation of one posting row and its stage verdicts.
// A nil verdict means the owning stage has not run for this row yet.
type Posting struct {
	JobID       string    // board-assigned id
	Source      string    // board token, e.g. "airbnb"
	Title       string    // job title
	Location    string    // raw location text
	Department  string    // first department name, may be empty
	PublishedAt time.Time // first_published, falling back to updated_at
	URL         string    // absolute apply link
	Description string    // plain text, HTML stripped
	FetchedAt   time.Time // our clock (set on insert)

	TitleFiltered *bool  // title stage verdict
	InUSA         *bool  // location stage verdict
	FitScore      *int   // 0-100
	VisaSponsor   *bool  // false only when the posting excludes sponsorship-dependent candidates
	Reason        string // short model justification for FitScore
}

// Key returns the composite key of the posting.
func (p Posting) Key() Key {
	return Key{JobID: p.JobID, Source: p.Source}
}

// Fields holds the verdict columns a stage writes. Nil fields are left untouched.
type Fields struct {
	TitleFiltered *bool
	InUSA         *bool
	FitScore      *int
	VisaSponsor   *bool
	Reason        *string
}

// Update is one keyed write of verdict columns.
type Update struct {
	Key    Key
	Fields Fields
}

// PostingStore is the row store shared by every stage.
type PostingStore interface {
	// Select returns the rows matching p.
	Select(ctx context.Context, p Predicate) ([]Posting, error)
	// KnownIDs returns the job ids already stored for source.
	KnownIDs(ctx context.Context, source string) (map[string]struct{}, error)
	// InsertNew inserts rows whose key is absent and returns how many were inserted.
	// Existing rows are never overwritten.
	InsertNew(ctx context.Context, postings []Posting) (int, error)
	// Update applies a batch of keyed updates and returns how many rows changed.
	// A column that is already set is never overwritten.
	Update(ctx context.Context, updates []Update) (int, error)
}

// SourceFetcher lists the postings of one job board.
type SourceFetcher interface {
	FetchPostings(ctx context.Context, source string) ([]Posting, error)
}

// Notifier sends notifications for strong matches.
type Notifier interface {
	Notify(postings []Posting) error
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// String returns a pointer to s.
func String(s string) *string { return &s }
