package models

import "time"

// SourceKind tags which extraction path produced a record
type SourceKind string

const (
	SourcePattern SourceKind = "pattern"
	SourceModel   SourceKind = "model"
)

// Health and panel status vocabulary. Unknown strings are kept verbatim.
const (
	StatusOK        = "OK"
	StatusHealthy   = "HEALTHY"
	StatusWarning   = "WARNING"
	StatusError     = "ERROR"
	StatusCritical  = "CRITICAL"
	StatusUnknown   = "UNKNOWN"
	StatusUp        = "UP"
	StatusDown      = "DOWN"
	StatusUnhealthy = "UNHEALTHY"
)

// ImageMetadata describes the source file of a record
type ImageMetadata struct {
	Filename  string `json:"filename"`
	Path      string `json:"path,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Format    string `json:"format,omitempty"`
	ColorMode string `json:"color_mode,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
}

// HasDimensions reports whether the image header could be decoded
func (m ImageMetadata) HasDimensions() bool {
	return m.Width > 0 && m.Height > 0
}

// PreprocessDiagnostics records what the OCR normalisation stage did
type PreprocessDiagnostics struct {
	OtsuThreshold     uint8   `json:"otsu_threshold"`
	ScaleFactor       float64 `json:"scale_factor"`
	LaplacianVariance float64 `json:"laplacian_variance"`
	MeanIntensity     float64 `json:"mean_intensity"`
	Blurry            bool    `json:"blurry"`
}

// OCRAccuracy compares recognised text against a caller supplied transcript
type OCRAccuracy struct {
	ExpectedText string  `json:"expected_text"`
	WER          float64 `json:"word_error_rate"`
	CER          float64 `json:"character_error_rate"`
}

// PatternSource is the payload of a record produced by OCR plus pattern matching
type PatternSource struct {
	RawText    string                 `json:"raw_text"`
	Metrics    MetricBag              `json:"metrics"`
	ChartTypes []string               `json:"chart_types"`
	Preprocess *PreprocessDiagnostics `json:"preprocess,omitempty"`
	Accuracy   *OCRAccuracy           `json:"accuracy,omitempty"`
}

// DashboardOverview is the model's summary of the whole dashboard
type DashboardOverview struct {
	Title      string `json:"title"`
	TimeRange  string `json:"time_range"`
	PanelCount int    `json:"panel_count"`
	Theme      string `json:"theme"`
}

// PanelObservation is one panel as described by the model.
// CurrentValue and Threshold hold whatever JSON scalar the model returned.
type PanelObservation struct {
	Title        string `json:"title"`
	Type         string `json:"type"`
	CurrentValue any    `json:"current_value"`
	Unit         string `json:"unit"`
	Status       string `json:"status"`
	Threshold    any    `json:"threshold,omitempty"`
}

// IsAlerting reports whether the panel status counts towards alerting panels
func (p PanelObservation) IsAlerting() bool {
	switch p.Status {
	case StatusError, StatusWarning, StatusCritical:
		return true
	}
	return false
}

// HasValue reports whether the model supplied a current value
func (p PanelObservation) HasValue() bool {
	return p.CurrentValue != nil
}

// ModelSource is the payload of a record produced by the vision model
type ModelSource struct {
	ModelName         string             `json:"model_name"`
	DashboardOverview DashboardOverview  `json:"dashboard_overview"`
	Panels            []PanelObservation `json:"panels"`
	Metrics           map[string]any     `json:"metrics"`
	HealthStatus      string             `json:"health_status"`
	Alerts            []string           `json:"alerts"`
	Insights          []string           `json:"insights"`
	RawModelText      string             `json:"raw_model_text,omitempty"`
	ParsingError      bool               `json:"parsing_error,omitempty"`
	CustomPrompt      string             `json:"custom_prompt,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// Health returns the health status, defaulting to UNKNOWN
func (m ModelSource) Health() string {
	if m.HealthStatus == "" {
		return StatusUnknown
	}
	return m.HealthStatus
}

// IsCritical reports whether the dashboard is in a state that needs prioritising
func (m ModelSource) IsCritical() bool {
	return m.HealthStatus == StatusCritical || m.HealthStatus == StatusError
}

// AlertingPanels counts panels whose status is ERROR, WARNING or CRITICAL
func (m ModelSource) AlertingPanels() int {
	n := 0
	for _, p := range m.Panels {
		if p.IsAlerting() {
			n++
		}
	}
	return n
}

// AnalysisRecord is the canonical result of analysing one dashboard image.
// Exactly one of Pattern and Model is set, matching Kind.
type AnalysisRecord struct {
	ProcessedAt time.Time      `json:"processed_at"`
	Kind        SourceKind     `json:"kind"`
	ImageInfo   ImageMetadata  `json:"image_info"`
	Pattern     *PatternSource `json:"pattern,omitempty"`
	Model       *ModelSource   `json:"model,omitempty"`
}

// NewPatternRecord builds a record for the OCR path stamped with the given time
func NewPatternRecord(at time.Time, info ImageMetadata, src PatternSource) *AnalysisRecord {
	return &AnalysisRecord{
		ProcessedAt: at.UTC(),
		Kind:        SourcePattern,
		ImageInfo:   info,
		Pattern:     &src,
	}
}

// NewModelRecord builds a record for the vision model path stamped with the given time
func NewModelRecord(at time.Time, info ImageMetadata, src ModelSource) *AnalysisRecord {
	return &AnalysisRecord{
		ProcessedAt: at.UTC(),
		Kind:        SourceModel,
		ImageInfo:   info,
		Model:       &src,
	}
}

// Valid reports whether the tag and payload agree
func (r *AnalysisRecord) Valid() bool {
	if r == nil || r.ImageInfo.Filename == "" {
		return false
	}
	switch r.Kind {
	case SourcePattern:
		return r.Pattern != nil && r.Model == nil
	case SourceModel:
		return r.Model != nil && r.Pattern == nil
	}
	return false
}

// DashboardTitle returns the best known title regardless of source
func (r *AnalysisRecord) DashboardTitle() string {
	switch r.Kind {
	case SourcePattern:
		return r.Pattern.Metrics.DashboardTitle
	case SourceModel:
		return r.Model.DashboardOverview.Title
	}
	return ""
}
