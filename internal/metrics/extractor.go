// Package metrics turns recognised dashboard text into a typed metric bag.
package metrics

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/pkg/models"
)

const (
	titleScanLines   = 3
	titleMinLength   = 5
	panelTitleMinLen = 3
	panelTitleMaxLen = 50
)

// Extract runs the pattern battery over every non-blank line of text.
// It never fails: on an internal fault it logs and returns an empty bag.
func Extract(text string) (bag models.MetricBag) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Metric extraction failed")
			bag = models.NewMetricBag()
		}
	}()

	bag = models.NewMetricBag()
	lines := strings.Split(text, "\n")

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		for _, p := range battery {
			bag.Add(p.category, p.find(line)...)
		}
	}

	bag.DashboardTitle = dashboardTitle(lines)
	bag.PanelTitles = panelTitles(lines)
	return bag
}

// dashboardTitle takes the first of the leading lines that is long enough to be a title
func dashboardTitle(lines []string) string {
	n := titleScanLines
	if len(lines) < n {
		n = len(lines)
	}
	for _, raw := range lines[:n] {
		line := strings.TrimSpace(raw)
		if utf8.RuneCountInString(line) > titleMinLength {
			return line
		}
	}
	return ""
}

// panelTitles keeps short digit-free lines in order, duplicates included
func panelTitles(lines []string) []string {
	var titles []string
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		n := utf8.RuneCountInString(line)
		if n <= panelTitleMinLen || n >= panelTitleMaxLen {
			continue
		}
		if strings.IndexFunc(line, unicode.IsDigit) >= 0 {
			continue
		}
		titles = append(titles, line)
	}
	return titles
}
