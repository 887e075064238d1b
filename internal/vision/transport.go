package vision

import (
	"context"
	"fmt"
	"strings"

	"go-dashboard-inspector/internal/config"
)

// Prompt is one multimodal request: a system directive, a user message and a
// single encoded image.
type Prompt struct {
	System    string
	User      string
	Image     []byte
	MediaType string
}

// Transport sends a prompt to a vision-capable model and returns its text reply
type Transport interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// NewTransport builds the transport selected by the vision configuration
func NewTransport(cfg config.VisionConfig) (Transport, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", ProviderAnthropic)
		}
		return NewAnthropicTransport(cfg.AnthropicAPIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", ProviderOpenAI)
		}
		return NewOpenAITransport(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported vision provider %q", cfg.Provider)
	}
}

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)
