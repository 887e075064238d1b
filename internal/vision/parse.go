package vision

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go-dashboard-inspector/pkg/models"
)

type wireOverview struct {
	Title      string `json:"title"`
	TimeRange  string `json:"time_range"`
	PanelCount any    `json:"panel_count"`
	Theme      string `json:"theme"`
}

type wirePanel struct {
	Title        string `json:"title"`
	Type         string `json:"type"`
	CurrentValue any    `json:"current_value"`
	Unit         string `json:"unit"`
	Status       string `json:"status"`
	Threshold    any    `json:"threshold"`
}

type wireReply struct {
	DashboardOverview wireOverview   `json:"dashboard_overview"`
	Panels            []wirePanel    `json:"panels"`
	Metrics           map[string]any `json:"metrics"`
	HealthStatus      string         `json:"health_status"`
	Alerts            []any          `json:"alerts"`
	Insights          []any          `json:"insights"`
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, leaving any other text untouched.
func stripFences(reply string) string {
	s := strings.TrimSpace(reply)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseReply decodes and validates a model reply into the structured fields of
// a model source. The returned error describes why the reply was unusable.
func parseReply(reply string) (models.ModelSource, error) {
	body := stripFences(reply)

	var generic any
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		return models.ModelSource{}, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if _, ok := generic.(map[string]any); !ok {
		return models.ModelSource{}, fmt.Errorf("reply is JSON but not an object")
	}
	if err := validateReply(generic); err != nil {
		return models.ModelSource{}, err
	}

	var w wireReply
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return models.ModelSource{}, fmt.Errorf("decode reply: %w", err)
	}

	src := models.ModelSource{
		DashboardOverview: models.DashboardOverview{
			Title:      strings.TrimSpace(w.DashboardOverview.Title),
			TimeRange:  w.DashboardOverview.TimeRange,
			PanelCount: panelCount(w.DashboardOverview.PanelCount),
			Theme:      w.DashboardOverview.Theme,
		},
		Panels:       make([]models.PanelObservation, 0, len(w.Panels)),
		Metrics:      w.Metrics,
		HealthStatus: strings.TrimSpace(w.HealthStatus),
		Alerts:       stringify(w.Alerts),
		Insights:     stringify(w.Insights),
	}
	if src.Metrics == nil {
		src.Metrics = map[string]any{}
	}
	for _, p := range w.Panels {
		src.Panels = append(src.Panels, models.PanelObservation{
			Title:        p.Title,
			Type:         p.Type,
			CurrentValue: p.CurrentValue,
			Unit:         p.Unit,
			Status:       p.Status,
			Threshold:    p.Threshold,
		})
	}
	return src, nil
}

// panelCount accepts the count as a number or numeric string; anything else is 0
func panelCount(v any) int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}

// stringify flattens alert and insight entries to text. Objects are kept as
// compact JSON so nothing the model said is lost.
func stringify(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		default:
			b, err := json.Marshal(v)
			if err != nil {
				out = append(out, fmt.Sprint(v))
				continue
			}
			out = append(out, string(b))
		}
	}
	return out
}
