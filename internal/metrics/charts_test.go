package metrics

import (
	"reflect"
	"testing"
)

func TestDetectChartTypes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"gauge keyword", "Disk Gauge 80%", []string{"gauge"}},
		{"no keywords", "CPU 45%", []string{"unknown"}},
		{"empty text", "", []string{"unknown"}},
		{"column is bar and table", "Column view", []string{"bar_chart", "table"}},
		{"several kinds in table order", "Heatmap of request count over time", []string{"time_series", "single_stat", "heatmap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectChartTypes(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDetectChartTypes_GaugeAlwaysIncluded(t *testing.T) {
	got := DetectChartTypes("latency over time with a speed gauge")
	found := false
	for _, c := range got {
		if c == "gauge" {
			found = true
		}
		if c == ChartUnknown {
			t.Error("Expected unknown not to appear alongside detected types")
		}
	}
	if !found {
		t.Errorf("Expected gauge in %v", got)
	}
}
