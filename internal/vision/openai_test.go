package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-dashboard-inspector/internal/config"
)

func TestOpenAITransport_Complete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected /v1/chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Expected bearer auth, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Expected JSON body, got %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"health_status\":\"HEALTHY\"}"}}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`))
	}))
	defer srv.Close()

	tr := NewOpenAITransport(OpenAIConfig{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/v1/",
		Model:       "gpt-4o",
		MaxTokens:   4000,
		Temperature: 0.1,
	})

	reply, err := tr.Complete(context.Background(), Prompt{
		System:    "sys",
		User:      "usr",
		Image:     []byte{0xff, 0xd8},
		MediaType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if reply != `{"health_status":"HEALTHY"}` {
		t.Errorf("Unexpected reply %q", reply)
	}

	if captured["model"] != "gpt-4o" {
		t.Errorf("Expected model gpt-4o, got %v", captured["model"])
	}
	if captured["max_tokens"] != float64(4000) {
		t.Errorf("Expected max_tokens 4000, got %v", captured["max_tokens"])
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	user, _ := messages[1].(map[string]any)
	parts, _ := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("Expected text and image parts, got %v", user["content"])
	}
	imagePart, _ := parts[1].(map[string]any)
	imageURL, _ := imagePart["image_url"].(map[string]any)
	if url, _ := imageURL["url"].(string); !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("Expected data URL, got %q", url)
	}
}

func TestOpenAITransport_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := NewOpenAITransport(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := tr.Complete(context.Background(), Prompt{MediaType: "image/jpeg"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestOpenAITransport_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAITransport(OpenAIConfig{BaseURL: srv.URL}).Complete(context.Background(), Prompt{})
	if err == nil {
		t.Error("Expected error for empty choices")
	}
}

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VisionConfig
		wantErr bool
	}{
		{"anthropic", config.VisionConfig{Provider: "anthropic", AnthropicAPIKey: "k", Model: "m", MaxTokens: 10}, false},
		{"anthropic without key", config.VisionConfig{Provider: "anthropic"}, true},
		{"openai", config.VisionConfig{Provider: "openai", OpenAIAPIKey: "k"}, false},
		{"openai without key", config.VisionConfig{Provider: "openai"}, true},
		{"unknown", config.VisionConfig{Provider: "bard", AnthropicAPIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTransport(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && tr == nil {
				t.Error("Expected transport")
			}
		})
	}
}

func TestBuildPrompts(t *testing.T) {
	sys, user := buildPrompts("", "")
	if sys != systemPrompt || user != analysisPrompt {
		t.Error("Expected default prompts without context")
	}
	if !strings.Contains(sys, `"dashboard_overview"`) {
		t.Error("Expected system prompt to carry the example JSON")
	}

	sys, user = buildPrompts("ignored", "custom")
	if sys != customSystemPrompt || user != "custom" {
		t.Errorf("Expected custom prompts, got %q / %q", sys, user)
	}
}
