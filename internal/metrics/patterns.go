package metrics

import (
	"regexp"

	"go-dashboard-inspector/pkg/models"
)

// valueShape says how a pattern's capture groups map onto a models.Match
type valueShape int

const (
	// shapeValueUnit: group 1 is the number, group 2 (if any) the unit
	shapeValueUnit valueShape = iota
	// shapeFixedUnit: group 1 is the number, the unit is constant
	shapeFixedUnit
	// shapeToken: group 1 is the whole token
	shapeToken
	// shapeKeyValue: group 1 is the key, group 2 the value
	shapeKeyValue
)

type pattern struct {
	category models.Category
	re       *regexp.Regexp
	shape    valueShape
	unit     string
}

// All patterns are matched case-insensitively against one trimmed line at a time.
// Families overlap on purpose: "45%" is both a number and a percentage.
var battery = []pattern{
	{
		category: models.CategoryNumbers,
		re:       regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([%kmgtKMGT]?[Bb]?/?[sS]?)`),
		shape:    shapeValueUnit,
	},
	{
		category: models.CategoryPercentages,
		re:       regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%`),
		shape:    shapeFixedUnit,
		unit:     "%",
	},
	{
		category: models.CategoryTimeValues,
		re:       regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(ms|s|m|h|d)`),
		shape:    shapeValueUnit,
	},
	{
		category: models.CategoryMemoryValues,
		re:       regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(B|KB|MB|GB|TB)`),
		shape:    shapeValueUnit,
	},
	{
		category: models.CategoryNetworkValues,
		re:       regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(bps|Kbps|Mbps|Gbps)`),
		shape:    shapeValueUnit,
	},
	{
		category: models.CategoryStatusIndicators,
		re:       regexp.MustCompile(`(?i)(UP|DOWN|OK|ERROR|CRITICAL|WARNING|HEALTHY|UNHEALTHY)`),
		shape:    shapeToken,
	},
	{
		category: models.CategoryTimestamps,
		re:       regexp.MustCompile(`(?i)(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4}|\d{2}:\d{2}:\d{2})`),
		shape:    shapeToken,
	},
	{
		category: models.CategoryLabels,
		re:       regexp.MustCompile(`(?i)([A-Za-z_][A-Za-z0-9_]*)\s*[:=]\s*([^\n\r]+)`),
		shape:    shapeKeyValue,
	},
}

// find returns every match of p in line, in order of appearance
func (p pattern) find(line string) []models.Match {
	hits := p.re.FindAllStringSubmatch(line, -1)
	if len(hits) == 0 {
		return nil
	}
	out := make([]models.Match, 0, len(hits))
	for _, h := range hits {
		switch p.shape {
		case shapeValueUnit:
			m := models.Match{Value: h[1]}
			if len(h) > 2 {
				m.Unit = h[2]
			}
			out = append(out, m)
		case shapeFixedUnit:
			out = append(out, models.Match{Value: h[1], Unit: p.unit})
		case shapeToken:
			out = append(out, models.Match{Value: h[1]})
		case shapeKeyValue:
			out = append(out, models.Match{Key: h[1], Value: h[2]})
		}
	}
	return out
}
