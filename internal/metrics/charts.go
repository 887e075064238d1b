package metrics

import "strings"

// ChartUnknown is the only type reported when no keyword matches
const ChartUnknown = "unknown"

type chartKeywords struct {
	chartType string
	keywords  []string
}

var chartTable = []chartKeywords{
	{"time_series", []string{"time", "series", "timeline", "hours", "minutes"}},
	{"bar_chart", []string{"bar", "column", "histogram"}},
	{"pie_chart", []string{"pie", "donut", "percentage"}},
	{"gauge", []string{"gauge", "meter", "speed"}},
	{"table", []string{"table", "row", "column"}},
	{"single_stat", []string{"total", "count", "sum", "average"}},
	{"heatmap", []string{"heatmap", "heat", "density"}},
}

// DetectChartTypes guesses chart kinds from substring keywords in text.
// A text can match several kinds; with no match the result is ["unknown"].
func DetectChartTypes(text string) []string {
	lower := strings.ToLower(text)

	var detected []string
	for _, entry := range chartTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				detected = append(detected, entry.chartType)
				break
			}
		}
	}
	if len(detected) == 0 {
		return []string{ChartUnknown}
	}
	return detected
}
