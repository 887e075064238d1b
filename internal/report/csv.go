package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go-dashboard-inspector/pkg/models"
)

const (
	maxNumericSamples = 5
	maxPanelTitles    = 3
	maxInsights       = 3
	maxPromptPreview  = 100
)

// Columns is the fixed superset header shared by both record kinds.
// Cells that do not apply to a record are left empty.
var Columns = []string{
	"filename",
	"processed_at",
	"source",
	"dashboard_title",
	"image_size",
	"file_size",
	// pattern path
	"primary_value",
	"primary_unit",
	"total_numbers",
	"percentage_values",
	"status",
	"panel_titles",
	"time_metrics",
	"memory_metrics",
	"network_metrics",
	"chart_types",
	"raw_text_length",
	// model path
	"model_used",
	"time_range",
	"panel_count",
	"dashboard_theme",
	"health_status",
	"cpu_usage",
	"memory_usage",
	"disk_usage",
	"network_in",
	"network_out",
	"total_panels",
	"panels_with_alerts",
	"panel_types",
	"key_values",
	"alert_count",
	"has_alerts",
	"insights_count",
	"key_insights",
	"parsing_error",
	"custom_prompt_used",
	"custom_prompt",
	"analysis_error",
}

// GenerateCSV writes a header plus one row per record, in input order
func (g *Generator) GenerateCSV(records []*models.AnalysisRecord, filename string) (string, error) {
	name := g.reportName(filename, familyPrefix(records), "csv")
	return g.write(name, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(Columns); err != nil {
			return err
		}
		for _, r := range records {
			if err := cw.Write(projectRow(r)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// projectRow flattens a record into cells aligned with Columns
func projectRow(r *models.AnalysisRecord) []string {
	cells := make(map[string]string, len(Columns))
	cells["filename"] = r.ImageInfo.Filename
	cells["processed_at"] = r.ProcessedAt.Format(time.RFC3339)
	cells["source"] = string(r.Kind)
	cells["dashboard_title"] = r.DashboardTitle()
	if r.ImageInfo.HasDimensions() {
		cells["image_size"] = fmt.Sprintf("%dx%d", r.ImageInfo.Width, r.ImageInfo.Height)
	}
	if r.ImageInfo.FileSize > 0 {
		cells["file_size"] = strconv.FormatInt(r.ImageInfo.FileSize, 10)
	}

	switch r.Kind {
	case models.SourcePattern:
		projectPattern(cells, r.Pattern)
	case models.SourceModel:
		projectModel(cells, r.Model)
	}

	row := make([]string, len(Columns))
	for i, col := range Columns {
		row[i] = cells[col]
	}
	return row
}

func projectPattern(cells map[string]string, p *models.PatternSource) {
	bag := p.Metrics
	if numbers := bag.Get(models.CategoryNumbers); len(numbers) > 0 {
		cells["primary_value"] = numbers[0].Value
		cells["primary_unit"] = numbers[0].Unit
		cells["total_numbers"] = strconv.Itoa(len(numbers))
	}
	cells["percentage_values"] = joinMatches(bag.Get(models.CategoryPercentages), maxNumericSamples)
	cells["status"] = joinMatches(bag.Get(models.CategoryStatusIndicators), 0)
	cells["panel_titles"] = joinCapped(bag.PanelTitles, maxPanelTitles)
	cells["time_metrics"] = joinMatches(bag.Get(models.CategoryTimeValues), maxNumericSamples)
	cells["memory_metrics"] = joinMatches(bag.Get(models.CategoryMemoryValues), maxNumericSamples)
	cells["network_metrics"] = joinMatches(bag.Get(models.CategoryNetworkValues), maxNumericSamples)
	cells["chart_types"] = strings.Join(p.ChartTypes, ", ")
	cells["raw_text_length"] = strconv.Itoa(len(p.RawText))
}

func projectModel(cells map[string]string, m *models.ModelSource) {
	cells["model_used"] = m.ModelName
	cells["time_range"] = m.DashboardOverview.TimeRange
	cells["panel_count"] = strconv.Itoa(m.DashboardOverview.PanelCount)
	cells["dashboard_theme"] = m.DashboardOverview.Theme
	cells["health_status"] = m.Health()
	for _, key := range []string{"cpu_usage", "memory_usage", "disk_usage", "network_in", "network_out"} {
		cells[key] = formatValue(m.Metrics[key])
	}

	if len(m.Panels) > 0 {
		cells["total_panels"] = strconv.Itoa(len(m.Panels))
		cells["panels_with_alerts"] = strconv.Itoa(m.AlertingPanels())

		var types []string
		seen := make(map[string]bool)
		var values []string
		for _, p := range m.Panels {
			if p.Type != "" && !seen[p.Type] {
				seen[p.Type] = true
				types = append(types, p.Type)
			}
			if p.HasValue() {
				values = append(values, formatValue(p.CurrentValue)+p.Unit)
			}
		}
		cells["panel_types"] = strings.Join(types, ", ")
		cells["key_values"] = joinCapped(values, maxNumericSamples)
	}

	cells["alert_count"] = strconv.Itoa(len(m.Alerts))
	cells["has_alerts"] = strconv.FormatBool(len(m.Alerts) > 0)
	cells["insights_count"] = strconv.Itoa(len(m.Insights))
	cells["key_insights"] = joinCapped(m.Insights, maxInsights)
	cells["parsing_error"] = strconv.FormatBool(m.ParsingError)
	cells["custom_prompt_used"] = strconv.FormatBool(m.CustomPrompt != "")
	cells["custom_prompt"] = previewPrompt(m.CustomPrompt)
	cells["analysis_error"] = m.Error
}

func joinMatches(matches []models.Match, limit int) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.String())
	}
	return joinCapped(parts, limit)
}

// joinCapped comma-joins at most limit items; limit <= 0 means no cap
func joinCapped(items []string, limit int) string {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}

func previewPrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= maxPromptPreview {
		return prompt
	}
	return string(runes[:maxPromptPreview]) + "..."
}

// formatValue renders a JSON scalar from the model without float noise
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
