package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/location.md
var locationPromptRaw string

//go:embed prompts/fit_match.md
var fitMatchPromptRaw string

// Templates are parsed once at package init and reused on every call.
var (
	// LocationTemplate renders the location question. Data: {Location string}.
	LocationTemplate = template.Must(template.New("location").Parse(locationPromptRaw))

	// FitMatchTemplate renders the scoring prompt. Data: fitPromptData.
	FitMatchTemplate = template.Must(template.New("fit_match").Parse(fitMatchPromptRaw))
)

const (
	locationSystemPrompt = "You classify job locations. Reply with Yes or No only."
	fitSystemPrompt      = "You are a careful technical recruiter scoring how well a resume fits a job posting."
)
