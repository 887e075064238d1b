package models

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// UploadSummary describes the artifacts produced for one uploaded batch
type UploadSummary struct {
	BatchID          string    `json:"batch_id"`
	TotalImages      int       `json:"total_images"`
	SkippedImages    int       `json:"skipped_images"`
	ReportFile       string    `json:"report_file"`
	ComparativeFile  string    `json:"comparative_file,omitempty"`
	SummaryFile      string    `json:"summary_file,omitempty"`
	OutputFormat     string    `json:"output_format"`
	AnalysisMethod   string    `json:"analysis_method"`
	ProcessedAt      time.Time `json:"processed_at"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	ArtifactURLs     []string  `json:"artifact_urls,omitempty"`
}

// UploadResponse is returned by the upload endpoint
type UploadResponse struct {
	Success    bool          `json:"success"`
	Summary    UploadSummary `json:"summary"`
	ReportPath string        `json:"report_path"`
}

// ProcessTextRequest carries raw text for pattern extraction
type ProcessTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// ProcessTextResponse returns the metric bag for raw text
type ProcessTextResponse struct {
	Success     bool      `json:"success"`
	Metrics     MetricBag `json:"metrics"`
	ChartTypes  []string  `json:"chart_types"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ReportFile describes a generated artifact in the output folder
type ReportFile struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// AnalyzeURLRequest analyses one screenshot fetched over HTTP
type AnalyzeURLRequest struct {
	URL          string `json:"url" binding:"required"`
	OutputFormat string `json:"output_format"`
	Method       string `json:"method"`
	Context      string `json:"context"`
	CustomPrompt string `json:"custom_prompt"`
	ExpectedText string `json:"expected_text"`
}

// AnalyzePanelRequest analyses a panel rendered by Grafana
type AnalyzePanelRequest struct {
	DashboardUID string `json:"dashboard_uid" binding:"required"`
	PanelID      int    `json:"panel_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	OutputFormat string `json:"output_format"`
	Method       string `json:"method"`
	Context      string `json:"context"`
	CustomPrompt string `json:"custom_prompt"`
}

// GrafanaStatus is returned by the connection test endpoint
type GrafanaStatus struct {
	Connected     bool   `json:"connected"`
	Authenticated bool   `json:"authenticated"`
	GrafanaURL    string `json:"grafana_url"`
}

// Settings exposes the non-secret runtime configuration
type Settings struct {
	GrafanaURL          string   `json:"grafana_url"`
	DefaultOutputFormat string   `json:"default_output_format"`
	OutputFormats       []string `json:"output_formats"`
	Methods             []string `json:"methods"`
	VisionProvider      string   `json:"vision_provider"`
	VisionModel         string   `json:"vision_model"`
	OCRLanguage         string   `json:"ocr_language"`
	ArtifactSink        string   `json:"artifact_sink"`
	SchedulerEnabled    bool     `json:"scheduler_enabled"`
}
