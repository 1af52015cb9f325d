package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/amishk599/jobsift/internal/model"
)

// maxReasonRunes bounds the stored justification.
const maxReasonRunes = 500

// fitSchema is the JSON Schema enforced server-side via OpenAI structured
// outputs. Other providers receive it only as prompt text.
var fitSchema = &Schema{
	Name: "fit_match",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"score":  map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"visa":   map[string]any{"type": "string", "enum": []string{"yes", "no"}},
			"reason": map[string]any{"type": "string"},
		},
		"required": []string{"score", "visa", "reason"},
	},
}

// FitResult is the parsed fit verdict for one posting.
type FitResult struct {
	Score       int
	VisaSponsor bool
	Reason      string
}

// FitMatcher scores postings against a resume with an LLM.
type FitMatcher struct {
	provider LLMProvider
	tmpl     *template.Template
}

// NewFitMatcher creates a matcher.
func NewFitMatcher(provider LLMProvider, tmpl *template.Template) *FitMatcher {
	return &FitMatcher{provider: provider, tmpl: tmpl}
}

type fitPromptData struct {
	Title       string
	Department  string
	Location    string
	Description string
	Resume      string
}

// Match scores one posting against resume.
func (m *FitMatcher) Match(ctx context.Context, p model.Posting, resume string) (FitResult, error) {
	var promptBuf bytes.Buffer
	if err := m.tmpl.Execute(&promptBuf, fitPromptData{
		Title:       p.Title,
		Department:  p.Department,
		Location:    p.Location,
		Description: p.Description,
		Resume:      resume,
	}); err != nil {
		return FitResult{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := m.provider.Complete(ctx, Prompt{
		System: fitSystemPrompt,
		User:   promptBuf.String(),
		Schema: fitSchema,
	})
	if err != nil {
		return FitResult{}, fmt.Errorf("llm complete: %w", err)
	}

	return parseFitResult(raw)
}

// rawFit is the loose JSON shape models return. Score and visa vary in type.
type rawFit struct {
	Score  any    `json:"score"`
	Visa   any    `json:"visa"`
	Reason string `json:"reason"`
}

// parseFitResult reads a JSON object (code fences tolerated), falling back to
// "score:", "visa:" and "reason:" lines.
func parseFitResult(raw string) (FitResult, error) {
	text := stripCodeFence(raw)

	var rf rawFit
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &rf); err != nil {
			rf = rawFit{}
		}
	}
	if rf.Score == nil {
		rf = parseFitLines(text)
	}
	if rf.Score == nil {
		return FitResult{}, fmt.Errorf("no score in %q: %w", truncate(raw, 80), model.ErrMalformedResponse)
	}

	score, err := parseScore(rf.Score)
	if err != nil {
		return FitResult{}, err
	}

	return FitResult{
		Score:       score,
		VisaSponsor: parseVisa(rf.Visa),
		Reason:      truncate(strings.TrimSpace(rf.Reason), maxReasonRunes),
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // language tag
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func parseFitLines(text string) rawFit {
	var rf rawFit
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.Trim(strings.TrimSpace(key), "*-\" ")) {
		case "score":
			rf.Score = value
		case "visa":
			rf.Visa = value
		case "reason":
			rf.Reason = value
		}
	}
	return rf
}

// parseScore accepts numbers and strings such as "85", "85.0", "85/100" and "85%".
func parseScore(v any) (int, error) {
	var f float64
	switch s := v.(type) {
	case float64:
		f = s
	case string:
		s = strings.TrimSpace(s)
		s, _, _ = strings.Cut(s, "/")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("score %q: %w", s, model.ErrMalformedResponse)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("score of type %T: %w", v, model.ErrMalformedResponse)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("score %v: %w", f, model.ErrMalformedResponse)
	}
	score := int(math.Round(f))
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("score %d: %w", score, model.ErrScoreOutOfRange)
	}
	return score, nil
}

// parseVisa is "no" only on an explicit no; anything else, including a missing
// value, means sponsorship-dependent candidates are not excluded.
func parseVisa(v any) bool {
	switch s := v.(type) {
	case bool:
		return s
	case string:
		s = strings.ToLower(strings.Trim(strings.TrimSpace(s), "\"'.*"))
		return !(s == "no" || s == "false")
	default:
		return true
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
