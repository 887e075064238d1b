package report

import (
	"io"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/pkg/models"
)

// Comparison holds the cross-record aggregates of a comparative report
type Comparison struct {
	Dashboards         int
	TotalPanels        int
	TotalAlerts        int
	HealthOrder        []string
	HealthCounts       map[string]int
	CriticalDashboards int
}

// Compare aggregates model records; pattern records are ignored
func Compare(records []*models.AnalysisRecord) Comparison {
	c := Comparison{HealthCounts: make(map[string]int)}
	for _, r := range records {
		if r.Kind != models.SourceModel {
			continue
		}
		m := r.Model
		c.Dashboards++
		c.TotalPanels += m.DashboardOverview.PanelCount
		c.TotalAlerts += len(m.Alerts)

		health := m.Health()
		if _, seen := c.HealthCounts[health]; !seen {
			c.HealthOrder = append(c.HealthOrder, health)
		}
		c.HealthCounts[health]++
		if m.IsCritical() {
			c.CriticalDashboards++
		}
	}
	return c
}

// Recommendations returns the fixed heuristic advice for the aggregates
func (c Comparison) Recommendations() []string {
	var out []string
	if c.TotalAlerts > 0 {
		out = append(out, formatCount(c.TotalAlerts, "alerts detected across all dashboards - investigate immediately"))
	}
	if c.CriticalDashboards > 0 {
		out = append(out, formatCount(c.CriticalDashboards, "dashboards in critical state - prioritize these"))
	}
	return append(out,
		"Regular monitoring recommended for all systems",
		"Consider setting up automated alerting for critical metrics",
	)
}

// GenerateComparative writes the cross-dashboard summary of the model records
func (g *Generator) GenerateComparative(records []*models.AnalysisRecord, filename string) (string, error) {
	var dashboards []*models.AnalysisRecord
	for _, r := range records {
		if r.Kind == models.SourceModel {
			dashboards = append(dashboards, r)
		}
	}
	if len(dashboards) == 0 {
		return "", apperrors.NewNoRecordsError("comparative report needs at least one model analysis", nil)
	}

	cmp := Compare(dashboards)
	name := g.reportName(filename, PrefixComparative, "txt")
	generated := g.now()

	return g.write(name, func(w io.Writer) error {
		tw := &textWriter{w: w}
		tw.line("COMPARATIVE DASHBOARD ANALYSIS REPORT")
		tw.line(rule("=", 70))
		tw.line("")
		tw.printf("Generated: %s\n", generated.Format(displayTimeFormat))
		tw.printf("Total Dashboards: %d\n\n", cmp.Dashboards)

		tw.line("SUMMARY STATISTICS:")
		tw.printf("  Total Panels Analyzed: %d\n", cmp.TotalPanels)
		tw.printf("  Total Alerts: %d\n", cmp.TotalAlerts)
		tw.line("  Health Status Distribution:")
		for _, status := range cmp.HealthOrder {
			tw.printf("    %s: %d\n", status, cmp.HealthCounts[status])
		}

		tw.line("\nDASHBOARD COMPARISON:")
		tw.line(rule("-", 50))
		for i, r := range dashboards {
			m := r.Model
			tw.printf("\nDashboard %d: %s\n", i+1, orDefault(m.DashboardOverview.Title, "Unknown"))
			tw.printf("  Health: %s\n", m.Health())
			tw.printf("  Panels: %d\n", m.DashboardOverview.PanelCount)
			tw.printf("  Alerts: %d\n", len(m.Alerts))
			if len(m.Insights) > 0 {
				tw.printf("  Key Insight: %s\n", m.Insights[0])
			}
		}

		tw.line("\nOVERALL RECOMMENDATIONS:")
		tw.line(rule("-", 30))
		for _, rec := range cmp.Recommendations() {
			tw.printf("• %s\n", rec)
		}
		return tw.err
	})
}
