package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-dashboard-inspector/internal/logger"

	"github.com/sirupsen/logrus"
)

// OpenAIConfig configures the chat/completions transport
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// OpenAITransport calls an OpenAI-compatible chat/completions endpoint
type OpenAITransport struct {
	cfg        OpenAIConfig
	httpClient *http.Client
}

// NewOpenAITransport fills defaults and returns a ready transport
func NewOpenAITransport(cfg OpenAIConfig) *OpenAITransport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &OpenAITransport{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int64         `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends the prompt with the image inlined as a data URL
func (t *OpenAITransport) Complete(ctx context.Context, p Prompt) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", p.MediaType, base64.StdEncoding.EncodeToString(p.Image))

	body := chatRequest{
		Model:       t.cfg.Model,
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: t.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: []chatContentPart{
				{Type: "text", Text: p.User},
				{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
			}},
		},
	}

	endpoint := strings.TrimRight(t.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := t.post(ctx, endpoint, body)
	if err != nil {
		return "", err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	fields := logrus.Fields{
		"provider":   ProviderOpenAI,
		"model":      t.cfg.Model,
		"reply_size": len(cc.Choices[0].Message.Content),
	}
	if cc.Usage != nil {
		fields["tokens_in"] = cc.Usage.PromptTokens
		fields["tokens_out"] = cc.Usage.CompletionTokens
	}
	logger.WithFields(fields).Debug("Vision reply received")

	return cc.Choices[0].Message.Content, nil
}

func (t *OpenAITransport) post(ctx context.Context, url string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
