package models

// Category names one family of pattern matches inside a MetricBag
type Category string

const (
	CategoryNumbers          Category = "numbers"
	CategoryPercentages      Category = "percentages"
	CategoryTimeValues       Category = "time_values"
	CategoryMemoryValues     Category = "memory_values"
	CategoryNetworkValues    Category = "network_values"
	CategoryStatusIndicators Category = "status_indicators"
	CategoryTimestamps       Category = "timestamps"
	CategoryLabels           Category = "labels"
)

// Categories lists every allowed MetricBag key in extraction order
var Categories = []Category{
	CategoryNumbers,
	CategoryPercentages,
	CategoryTimeValues,
	CategoryMemoryValues,
	CategoryNetworkValues,
	CategoryStatusIndicators,
	CategoryTimestamps,
	CategoryLabels,
}

// IsValid reports whether c is one of the fixed categories
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Match is a single pattern hit. Numeric families fill Value and Unit, status and
// timestamp families fill Value only, labels fill Key and Value.
type Match struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// String renders the match the way report cells show it
func (m Match) String() string {
	if m.Key != "" {
		return m.Key + ": " + m.Value
	}
	return m.Value + m.Unit
}

// MetricBag holds the pattern matches extracted from recognised text.
// A category that was not observed is absent from Values; present categories
// are never empty.
type MetricBag struct {
	Values         map[Category][]Match `json:"values"`
	DashboardTitle string               `json:"dashboard_title"`
	PanelTitles    []string             `json:"panel_titles"`
}

// NewMetricBag returns an empty bag ready for Add
func NewMetricBag() MetricBag {
	return MetricBag{Values: map[Category][]Match{}}
}

// Add appends matches to a category, creating it on first use
func (b *MetricBag) Add(c Category, matches ...Match) {
	if len(matches) == 0 {
		return
	}
	if b.Values == nil {
		b.Values = map[Category][]Match{}
	}
	b.Values[c] = append(b.Values[c], matches...)
}

// Get returns the matches for a category; absent categories yield nil
func (b MetricBag) Get(c Category) []Match {
	return b.Values[c]
}

// Has reports whether a category was observed
func (b MetricBag) Has(c Category) bool {
	return len(b.Values[c]) > 0
}

// Count returns the total number of matches over the given categories
func (b MetricBag) Count(categories ...Category) int {
	n := 0
	for _, c := range categories {
		n += len(b.Values[c])
	}
	return n
}

// IsEmpty reports whether nothing at all was extracted
func (b MetricBag) IsEmpty() bool {
	return len(b.Values) == 0 && b.DashboardTitle == "" && len(b.PanelTitles) == 0
}
