package model

import (
	"slices"
	"time"
)

// Column names a verdict column of the postings table. Only these constants
// are ever interpolated into SQL.
type Column string

const (
	ColTitleFiltered Column = "title_filtered"
	ColInUSA         Column = "in_usa"
	ColFitScore      Column = "fit_score"
	ColVisaSponsor   Column = "visa_sponsor"
)

// Condition requires a boolean verdict column to hold Value.
type Condition struct {
	Column Column
	Value  bool
}

// Predicate describes a set of posting rows. The zero value matches every row.
type Predicate struct {
	Pending        []Column    // must be NULL
	Equals         []Condition // must be set and equal
	PublishedSince time.Time   // zero means unbounded
	MinScore       *int        // fit_score >= MinScore (implies fit_score set)
	Sources        []string    // empty means every source
	Limit          int         // zero means no limit
}

// TitleFilterPending selects rows the title stage has not classified yet.
func TitleFilterPending(since time.Time) Predicate {
	return Predicate{
		Pending:        []Column{ColTitleFiltered},
		PublishedSince: since,
	}
}

// LocationPending selects title-qualified rows without a location verdict.
func LocationPending(since time.Time) Predicate {
	return Predicate{
		Pending:        []Column{ColInUSA},
		Equals:         []Condition{{Column: ColTitleFiltered, Value: true}},
		PublishedSince: since,
	}
}

// FitMatchPending selects location-qualified rows without a fit score.
func FitMatchPending(since time.Time) Predicate {
	return Predicate{
		Pending: []Column{ColFitScore},
		Equals: []Condition{
			{Column: ColTitleFiltered, Value: true},
			{Column: ColInUSA, Value: true},
		},
		PublishedSince: since,
	}
}

// Scored selects rows with a fit score of at least min.
func Scored(min int) Predicate {
	return Predicate{MinScore: Int(min)}
}

// Match evaluates the predicate against a posting in memory. It agrees with the
// SQL rendering used by the stores.
func (p Predicate) Match(post Posting) bool {
	for _, c := range p.Pending {
		if post.isSet(c) {
			return false
		}
	}
	for _, c := range p.Equals {
		v := post.boolColumn(c.Column)
		if v == nil || *v != c.Value {
			return false
		}
	}
	if !p.PublishedSince.IsZero() && post.PublishedAt.Before(p.PublishedSince) {
		return false
	}
	if p.MinScore != nil && (post.FitScore == nil || *post.FitScore < *p.MinScore) {
		return false
	}
	if len(p.Sources) > 0 && !slices.Contains(p.Sources, post.Source) {
		return false
	}
	return true
}

func (p Posting) isSet(c Column) bool {
	if c == ColFitScore {
		return p.FitScore != nil
	}
	return p.boolColumn(c) != nil
}

func (p Posting) boolColumn(c Column) *bool {
	switch c {
	case ColTitleFiltered:
		return p.TitleFiltered
	case ColInUSA:
		return p.InUSA
	case ColVisaSponsor:
		return p.VisaSponsor
	}
	return nil
}
