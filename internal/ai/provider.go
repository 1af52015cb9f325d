package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Prompt is one request to a language model.
type Prompt struct {
	System    string
	User      string
	Schema    *Schema // nil means free-form text
	MaxTokens int     // zero means the provider default
}

// Schema asks providers that support it to constrain the answer to a JSON
// document of this shape.
type Schema struct {
	Name       string
	Definition map[string]any
}

// LLMProvider sends a prompt to an LLM and returns the raw text response.
type LLMProvider interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Provider names accepted by NewProvider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

const defaultMaxTokens = 1024

// ProviderConfig selects and configures an LLM backend.
type ProviderConfig struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// NewProvider builds the LLMProvider named by cfg.Provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (LLMProvider, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, &http.Client{Timeout: cfg.Timeout}), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

func maxTokens(p Prompt) int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return defaultMaxTokens
}
