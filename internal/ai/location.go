package ai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/amishk599/jobsift/internal/model"
)

// LocationClassifier decides whether a posting location is in the USA or
// remote. Safe for concurrent use when its cache is.
type LocationClassifier struct {
	provider LLMProvider
	tmpl     *template.Template
	cache    VerdictCache
	logger   *slog.Logger
}

// NewLocationClassifier creates a classifier. cache may be nil.
func NewLocationClassifier(provider LLMProvider, tmpl *template.Template, cache VerdictCache, logger *slog.Logger) *LocationClassifier {
	return &LocationClassifier{
		provider: provider,
		tmpl:     tmpl,
		cache:    cache,
		logger:   logger,
	}
}

// Classify returns true for "Yes". Empty location text is "No" without a
// model call. Cache errors are logged and otherwise ignored.
func (c *LocationClassifier) Classify(ctx context.Context, location string) (bool, error) {
	key := normalizeLocation(location)
	if key == "" {
		return false, nil
	}

	if c.cache != nil {
		verdict, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("location cache read failed", "error", err)
		} else if ok {
			return verdict, nil
		}
	}

	var promptBuf bytes.Buffer
	if err := c.tmpl.Execute(&promptBuf, struct{ Location string }{Location: strings.TrimSpace(location)}); err != nil {
		return false, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := c.provider.Complete(ctx, Prompt{
		System:    locationSystemPrompt,
		User:      promptBuf.String(),
		MaxTokens: 5,
	})
	if err != nil {
		return false, fmt.Errorf("llm complete: %w", err)
	}

	verdict, err := parseLocationAnswer(raw)
	if err != nil {
		return false, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, verdict); err != nil {
			c.logger.Warn("location cache write failed", "error", err)
		}
	}
	return verdict, nil
}

// parseLocationAnswer accepts an answer whose first word is yes or no,
// ignoring case, quotes and trailing punctuation. "Not sure" or "None" is
// malformed, not a No.
func parseLocationAnswer(raw string) (bool, error) {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return false, fmt.Errorf("location answer %q: %w", raw, model.ErrMalformedResponse)
	}
	switch strings.Trim(fields[0], "\"'*`.,!:;") {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("location answer %q: %w", raw, model.ErrMalformedResponse)
	}
}
