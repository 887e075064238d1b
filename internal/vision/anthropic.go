package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	"go-dashboard-inspector/internal/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

// AnthropicTransport talks to the Anthropic Messages API
type AnthropicTransport struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicTransport creates a transport for the given model. Extra request
// options (base URL, HTTP client) are passed through to the SDK.
func NewAnthropicTransport(apiKey, model string, maxTokens int64, temperature float64, opts ...option.RequestOption) *AnthropicTransport {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicTransport{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Complete sends the image and prompt as one user turn
func (t *AnthropicTransport) Complete(ctx context.Context, p Prompt) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(p.Image)

	message, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(t.model),
		MaxTokens:   t.maxTokens,
		Temperature: anthropic.Float(t.temperature),
		System: []anthropic.TextBlockParam{
			{Text: p.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(p.MediaType, encoded),
				anthropic.NewTextBlock(p.User),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			logger.WithFields(logrus.Fields{
				"provider":   ProviderAnthropic,
				"model":      t.model,
				"tokens_in":  message.Usage.InputTokens,
				"tokens_out": message.Usage.OutputTokens,
				"reply_size": len(block.Text),
			}).Debug("Vision reply received")
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in anthropic response")
}
