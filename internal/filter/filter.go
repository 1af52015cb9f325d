package filter

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/amishk599/jobsift/internal/model"
)

// TitleFilter passes postings whose title contains at least one inclusion
// keyword and no exclusion keyword. Matching is case-insensitive substring
// search; exclusion wins. An empty inclusion list passes nothing.
//
// A TitleFilter is not safe for concurrent use.
type TitleFilter struct {
	include *ahocorasick.Matcher
	exclude *ahocorasick.Matcher
}

// NewTitleFilter builds the two keyword automata.
func NewTitleFilter(include, exclude []string) *TitleFilter {
	return &TitleFilter{
		include: newMatcher(include),
		exclude: newMatcher(exclude),
	}
}

func newMatcher(keywords []string) *ahocorasick.Matcher {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	return ahocorasick.NewStringMatcher(normalized)
}

// MatchTitle reports whether title passes the filter.
func (f *TitleFilter) MatchTitle(title string) bool {
	if f.include == nil {
		return false
	}
	text := []byte(strings.ToLower(title))
	if len(f.include.Match(text)) == 0 {
		return false
	}
	if f.exclude != nil && len(f.exclude.Match(text)) > 0 {
		return false
	}
	return true
}

// Match applies MatchTitle to a posting.
func (f *TitleFilter) Match(p model.Posting) bool {
	return f.MatchTitle(p.Title)
}
