package report

import (
	"fmt"
	"io"
	"sort"

	"go-dashboard-inspector/pkg/models"
)

// countedCategories are the numeric families summed into "Total Metrics Extracted"
var countedCategories = []models.Category{
	models.CategoryNumbers,
	models.CategoryPercentages,
	models.CategoryTimeValues,
	models.CategoryMemoryValues,
}

// GenerateSummary writes aggregate statistics over the pattern records
func (g *Generator) GenerateSummary(records []*models.AnalysisRecord, filename string) (string, error) {
	var images, totalMetrics int
	var statusOrder []string
	statusCounts := make(map[string]int)
	titles := make(map[string]struct{})

	for _, r := range records {
		if r.Kind != models.SourcePattern {
			continue
		}
		images++
		bag := r.Pattern.Metrics
		totalMetrics += bag.Count(countedCategories...)
		for _, m := range bag.Get(models.CategoryStatusIndicators) {
			if _, seen := statusCounts[m.Value]; !seen {
				statusOrder = append(statusOrder, m.Value)
			}
			statusCounts[m.Value]++
		}
		if bag.DashboardTitle != "" {
			titles[bag.DashboardTitle] = struct{}{}
		}
	}

	sortedTitles := make([]string, 0, len(titles))
	for t := range titles {
		sortedTitles = append(sortedTitles, t)
	}
	sort.Strings(sortedTitles)

	name := g.reportName(filename, PrefixSummary, "txt")
	generated := g.now()

	return g.write(name, func(w io.Writer) error {
		tw := &textWriter{w: w}
		tw.line("GRAFANA MONITORING SUMMARY REPORT")
		tw.line(rule("=", 50))
		tw.line("")
		tw.printf("Generated: %s\n", generated.Format(displayTimeFormat))
		tw.printf("Total Images Processed: %d\n\n", images)
		tw.printf("Total Metrics Extracted: %d\n", totalMetrics)
		tw.printf("Unique Dashboards: %d\n", len(sortedTitles))

		if len(statusOrder) > 0 {
			tw.line("Status Indicators:")
			for _, s := range statusOrder {
				tw.printf("  - %s: %d\n", s, statusCounts[s])
			}
		}
		if len(sortedTitles) > 0 {
			tw.line("\nDashboard Titles:")
			for _, t := range sortedTitles {
				tw.printf("  - %s\n", t)
			}
		}
		return tw.err
	})
}

func formatCount(n int, text string) string {
	return fmt.Sprintf("%d %s", n, text)
}
