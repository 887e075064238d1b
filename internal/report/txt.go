package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go-dashboard-inspector/pkg/models"
)

const (
	txtSampleLimit = 5
	rawTextPreview = 200
)

// GenerateTXT writes a narrative report with one delimited section per record
func (g *Generator) GenerateTXT(records []*models.AnalysisRecord, filename string) (string, error) {
	prefix := familyPrefix(records)
	name := g.reportName(filename, prefix, "txt")
	generated := g.now()

	return g.write(name, func(w io.Writer) error {
		tw := &textWriter{w: w}
		if prefix == PrefixModel {
			writeModelTXT(tw, records, generated)
		} else {
			writePatternTXT(tw, records, generated)
		}
		return tw.err
	})
}

// textWriter keeps the first write error so rendering code stays linear
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) line(s string) {
	t.printf("%s\n", s)
}

func writePatternTXT(tw *textWriter, records []*models.AnalysisRecord, generated time.Time) {
	tw.line("GRAFANA MONITORING REPORT")
	tw.line(rule("=", 50))
	tw.line("")
	tw.printf("Generated: %s\n\n", generated.Format(displayTimeFormat))

	for i, r := range records {
		tw.printf("IMAGE %d: %s\n", i+1, r.ImageInfo.Filename)
		tw.line(rule("-", 30))
		switch r.Kind {
		case models.SourcePattern:
			writePatternSection(tw, r)
		case models.SourceModel:
			writeModelSection(tw, r)
		}
		tw.line("")
	}
}

func writePatternSection(tw *textWriter, r *models.AnalysisRecord) {
	p := r.Pattern
	bag := p.Metrics

	tw.printf("Processed: %s\n", r.ProcessedAt.Format(time.RFC3339))
	if bag.DashboardTitle != "" {
		tw.printf("Dashboard: %s\n", bag.DashboardTitle)
	}
	if r.ImageInfo.HasDimensions() {
		tw.printf("Image Size: %dx%d\n", r.ImageInfo.Width, r.ImageInfo.Height)
	}
	if r.ImageInfo.FileSize > 0 {
		tw.printf("File Size: %d bytes\n", r.ImageInfo.FileSize)
	}

	if numbers := bag.Get(models.CategoryNumbers); len(numbers) > 0 {
		tw.printf("Numeric Values: %d found\n", len(numbers))
		for _, m := range numbers[:min(len(numbers), txtSampleLimit)] {
			tw.printf("  - %s %s\n", m.Value, m.Unit)
		}
	}
	if pct := bag.Get(models.CategoryPercentages); len(pct) > 0 {
		tw.printf("Percentages: %s\n", joinMatches(pct, 0))
	}
	if status := bag.Get(models.CategoryStatusIndicators); len(status) > 0 {
		tw.printf("Status: %s\n", joinMatches(status, 0))
	}
	if len(bag.PanelTitles) > 0 {
		tw.line("Panel Titles:")
		for _, title := range bag.PanelTitles[:min(len(bag.PanelTitles), txtSampleLimit)] {
			tw.printf("  - %s\n", title)
		}
	}
	if len(p.ChartTypes) > 0 {
		tw.printf("Chart Types: %s\n", strings.Join(p.ChartTypes, ", "))
	}
	if p.Preprocess != nil && p.Preprocess.Blurry {
		tw.printf("Image Quality: blurry (laplacian variance %.1f)\n", p.Preprocess.LaplacianVariance)
	}
	if p.Accuracy != nil {
		tw.printf("OCR Accuracy: WER %.3f, CER %.3f\n", p.Accuracy.WER, p.Accuracy.CER)
	}
	if p.RawText != "" {
		tw.printf("Raw Text Sample (first %d chars):\n", rawTextPreview)
		runes := []rune(p.RawText)
		tw.printf("  %s...\n", string(runes[:min(len(runes), rawTextPreview)]))
	}
	tw.line("")
}

func writeModelTXT(tw *textWriter, records []*models.AnalysisRecord, generated time.Time) {
	tw.line("GRAFANA DASHBOARD ANALYSIS REPORT (LLM-POWERED)")
	tw.line(rule("=", 70))
	tw.line("")
	tw.printf("Generated: %s\n", generated.Format(displayTimeFormat))
	tw.printf("Analysis Method: %s\n", analysisMethod(records))
	tw.printf("Total Dashboards Analyzed: %d\n\n", len(records))

	for i, r := range records {
		tw.printf("DASHBOARD %d ANALYSIS\n", i+1)
		tw.line(rule("-", 40))
		writeModelSection(tw, r)
		tw.printf("\n%s\n\n", rule("=", 70))
	}
}

func writeModelSection(tw *textWriter, r *models.AnalysisRecord) {
	m := r.Model

	tw.printf("Analysis Time: %s\n", r.ProcessedAt.Format(time.RFC3339))
	tw.printf("Model Used: %s\n", m.ModelName)
	tw.printf("Image: %s\n", r.ImageInfo.Filename)

	if ov := m.DashboardOverview; ov != (models.DashboardOverview{}) {
		tw.line("\nDASHBOARD OVERVIEW:")
		tw.printf("  Title: %s\n", orDefault(ov.Title, "Unknown"))
		tw.printf("  Time Range: %s\n", orDefault(ov.TimeRange, "Unknown"))
		tw.printf("  Panel Count: %d\n", ov.PanelCount)
		tw.printf("  Theme: %s\n", orDefault(ov.Theme, "Unknown"))
	}

	if m.HealthStatus != "" {
		tw.printf("\nHEALTH STATUS: %s\n", m.Health())
	}

	if len(m.Metrics) > 0 {
		tw.line("\nKEY METRICS:")
		keys := make([]string, 0, len(m.Metrics))
		for k := range m.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tw.printf("  %s: %s\n", k, formatValue(m.Metrics[k]))
		}
	}

	if len(m.Panels) > 0 {
		tw.printf("\nPANELS ANALYSIS (%d panels):\n", len(m.Panels))
		for i, p := range m.Panels {
			value := "N/A"
			if p.HasValue() {
				value = formatValue(p.CurrentValue)
			}
			tw.printf("  Panel %d: %s\n", i+1, orDefault(p.Title, "Unnamed"))
			tw.printf("    Type: %s\n", orDefault(p.Type, "Unknown"))
			tw.printf("    Value: %s %s\n", value, p.Unit)
			tw.printf("    Status: %s\n", orDefault(p.Status, "Unknown"))
			if p.Threshold != nil {
				tw.printf("    Threshold: %s\n", formatValue(p.Threshold))
			}
			tw.line("")
		}
	}

	if len(m.Alerts) > 0 {
		tw.printf("ALERTS (%d active):\n", len(m.Alerts))
		for _, a := range m.Alerts {
			tw.printf("  - %s\n", a)
		}
	}

	if len(m.Insights) > 0 {
		tw.line("\nINSIGHTS AND RECOMMENDATIONS:")
		for _, in := range m.Insights {
			tw.printf("  • %s\n", in)
		}
	}
	if m.RawModelText != "" {
		tw.line("\nRAW ANALYSIS:")
		tw.line(m.RawModelText)
	}
	if m.CustomPrompt != "" {
		tw.line("\nCUSTOM PROMPT USED:")
		tw.line(m.CustomPrompt)
	}
	if m.Error != "" {
		tw.printf("\nERROR: %s\n", m.Error)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
