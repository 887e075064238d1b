package vision

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/pkg/models"
)

type fakeTransport struct {
	reply  string
	err    error
	prompt Prompt
	calls  int
}

func (f *fakeTransport) Complete(ctx context.Context, p Prompt) (string, error) {
	f.calls++
	f.prompt = p
	return f.reply, f.err
}

func writeDashboard(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{30, 120, 200, 128})
		}
	}
	path := filepath.Join(t.TempDir(), "grafana.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

const structuredReply = "```json\n" + `{
  "dashboard_overview": {"title": "Infrastructure Monitoring", "time_range": "Last 24 hours", "panel_count": 2, "theme": "infrastructure"},
  "panels": [
    {"title": "CPU Usage", "type": "gauge", "current_value": 45.2, "unit": "%", "status": "OK", "threshold": 80},
    {"title": "Disk", "type": "stat", "current_value": "91", "unit": "%", "status": "CRITICAL"}
  ],
  "metrics": {"cpu_usage": 45.2},
  "health_status": "WARNING",
  "alerts": ["Disk almost full", {"panel": "Disk", "level": "critical"}],
  "insights": ["CPU usage is within normal range"]
}` + "\n```"

func TestAnalyze_StructuredReply(t *testing.T) {
	path := writeDashboard(t, 64, 32)
	tr := &fakeTransport{reply: structuredReply}
	a := NewAnalyzer(tr, "claude-sonnet-4-5")

	record, err := a.Analyze(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if record.Kind != models.SourceModel || !record.Valid() {
		t.Fatalf("Expected valid model record, got %+v", record)
	}

	src := record.Model
	if src.ParsingError {
		t.Fatal("Expected structured reply to parse")
	}
	if src.ModelName != "claude-sonnet-4-5" {
		t.Errorf("Expected model name to be recorded, got %q", src.ModelName)
	}
	if src.DashboardOverview.Title != "Infrastructure Monitoring" || src.DashboardOverview.PanelCount != 2 {
		t.Errorf("Unexpected overview: %+v", src.DashboardOverview)
	}
	if len(src.Panels) != 2 {
		t.Fatalf("Expected 2 panels, got %d", len(src.Panels))
	}
	if src.Panels[0].CurrentValue != 45.2 {
		t.Errorf("Expected numeric current value 45.2, got %v", src.Panels[0].CurrentValue)
	}
	if src.Panels[1].CurrentValue != "91" {
		t.Errorf("Expected string current value kept, got %v", src.Panels[1].CurrentValue)
	}
	if src.AlertingPanels() != 1 {
		t.Errorf("Expected 1 alerting panel, got %d", src.AlertingPanels())
	}
	if len(src.Alerts) != 2 || src.Alerts[0] != "Disk almost full" {
		t.Errorf("Unexpected alerts: %v", src.Alerts)
	}
	if !strings.Contains(src.Alerts[1], `"panel":"Disk"`) {
		t.Errorf("Expected object alert flattened to JSON, got %q", src.Alerts[1])
	}
	if src.RawModelText != "" {
		t.Errorf("Expected no raw text on success, got %q", src.RawModelText)
	}

	if tr.prompt.System != systemPrompt {
		t.Error("Expected standard system prompt")
	}
	if tr.prompt.MediaType != "image/jpeg" {
		t.Errorf("Expected jpeg media type, got %s", tr.prompt.MediaType)
	}
}

func TestAnalyze_NonJSONReplyKeptVerbatim(t *testing.T) {
	path := writeDashboard(t, 16, 16)
	tr := &fakeTransport{reply: "not json at all"}

	record, err := NewAnalyzer(tr, "gpt-4o").Analyze(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !record.Model.ParsingError {
		t.Error("Expected parsing error flag")
	}
	if record.Model.RawModelText != "not json at all" {
		t.Errorf("Expected reply kept verbatim, got %q", record.Model.RawModelText)
	}
	if record.Model.Health() != models.StatusUnknown {
		t.Errorf("Expected UNKNOWN health, got %s", record.Model.Health())
	}
}

func TestAnalyze_SchemaMismatch(t *testing.T) {
	path := writeDashboard(t, 16, 16)
	reply := `{"panels": "should be a list"}`
	tr := &fakeTransport{reply: reply}

	record, err := NewAnalyzer(tr, "m").Analyze(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !record.Model.ParsingError || record.Model.RawModelText != reply {
		t.Errorf("Expected schema mismatch to be kept raw, got %+v", record.Model)
	}
}

func TestAnalyze_AdditionalContext(t *testing.T) {
	path := writeDashboard(t, 16, 16)
	tr := &fakeTransport{reply: `{}`}

	if _, err := NewAnalyzer(tr, "m").Analyze(context.Background(), path, "production cluster"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.HasSuffix(tr.prompt.User, "\n\nAdditional context: production cluster") {
		t.Errorf("Expected context appended to user prompt, got %q", tr.prompt.User)
	}
}

func TestAnalyzeWithPrompt(t *testing.T) {
	path := writeDashboard(t, 16, 16)
	tr := &fakeTransport{reply: "Memory looks fine."}
	instructions := "List only memory panels"

	record, err := NewAnalyzer(tr, "m").AnalyzeWithPrompt(context.Background(), path, instructions)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if tr.prompt.System != customSystemPrompt {
		t.Errorf("Expected custom system prompt, got %q", tr.prompt.System)
	}
	if tr.prompt.User != instructions {
		t.Errorf("Expected instructions verbatim, got %q", tr.prompt.User)
	}
	if record.Model.CustomPrompt != instructions {
		t.Errorf("Expected instructions echoed, got %q", record.Model.CustomPrompt)
	}
	if !record.Model.ParsingError || record.Model.RawModelText != "Memory looks fine." {
		t.Errorf("Expected free-text reply kept raw, got %+v", record.Model)
	}
}

func TestAnalyze_TransportFailure(t *testing.T) {
	path := writeDashboard(t, 16, 16)
	tr := &fakeTransport{err: errors.New("connection refused")}

	record, err := NewAnalyzer(tr, "m").Analyze(context.Background(), path, "")
	if record != nil {
		t.Error("Expected no record on transport failure")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeUpstreamUnavailable) {
		t.Errorf("Expected upstream_unavailable error, got %v", err)
	}
}

func TestAnalyze_UnreadableImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	tr := &fakeTransport{reply: "{}"}

	record, err := NewAnalyzer(tr, "m").Analyze(context.Background(), path, "")
	if record != nil || err == nil {
		t.Fatal("Expected error for unreadable image")
	}
	if tr.calls != 0 {
		t.Errorf("Expected transport not to be called, got %d calls", tr.calls)
	}
}

func TestAnalyze_LargeImageDownscaled(t *testing.T) {
	path := writeDashboard(t, 3000, 1000)
	tr := &fakeTransport{reply: "{}"}

	if _, err := NewAnalyzer(tr, "m").Analyze(context.Background(), path, ""); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	cfg, format, err := image.DecodeConfig(strings.NewReader(string(tr.prompt.Image)))
	if err != nil {
		t.Fatalf("Expected decodable image, got %v", err)
	}
	if format != "jpeg" {
		t.Errorf("Expected jpeg, got %s", format)
	}
	if cfg.Width != MaxImageSide {
		t.Errorf("Expected width %d, got %d", MaxImageSide, cfg.Width)
	}
}

func TestAnalyze_PanelCountAsString(t *testing.T) {
	path := writeDashboard(t, 16, 16)
	tr := &fakeTransport{reply: `{"dashboard_overview": {"title": "Infra", "panel_count": "8"}, "health_status": "OK"}`}

	record, err := NewAnalyzer(tr, "m").Analyze(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if record.Model.ParsingError {
		t.Fatalf("Expected structured record, got raw %q", record.Model.RawModelText)
	}
	if record.Model.DashboardOverview.PanelCount != 8 {
		t.Errorf("Expected panel count 8, got %d", record.Model.DashboardOverview.PanelCount)
	}
	if record.Model.DashboardOverview.Title != "Infra" {
		t.Errorf("Expected title Infra, got %q", record.Model.DashboardOverview.Title)
	}
}

func TestPanelCount(t *testing.T) {
	tests := []struct {
		input    any
		expected int
	}{
		{float64(4), 4},
		{2.6, 3},
		{"8", 8},
		{" 12 ", 12},
		{"eight", 0},
		{"-3", 0},
		{nil, 0},
		{true, 0},
	}
	for _, tt := range tests {
		if got := panelCount(tt.input); got != tt.expected {
			t.Errorf("panelCount(%v) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"{\"a\":1}":               "{\"a\":1}",
		"```json\n{\"a\":1}\n```": "{\"a\":1}",
		"```\n{\"a\":1}\n```":     "{\"a\":1}",
		"  ```JSON\n{}\n```  ":    "{}",
		"plain text":              "plain text",
	}
	for in, want := range tests {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
