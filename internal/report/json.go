package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/pkg/models"
)

// Document is the JSON report wrapper. Records are stored verbatim.
type Document struct {
	GeneratedAt    time.Time                `json:"generated_at"`
	AnalysisMethod string                   `json:"analysis_method"`
	TotalCount     int                      `json:"total_count"`
	Records        []*models.AnalysisRecord `json:"records"`
}

// GenerateJSON writes the records inside a Document with two-space indentation
func (g *Generator) GenerateJSON(records []*models.AnalysisRecord, filename string) (string, error) {
	name := g.reportName(filename, familyPrefix(records), "json")
	if records == nil {
		records = []*models.AnalysisRecord{}
	}
	doc := Document{
		GeneratedAt:    g.now().UTC(),
		AnalysisMethod: analysisMethod(records),
		TotalCount:     len(records),
		Records:        records,
	}
	return g.write(name, func(w io.Writer) error {
		return encodeJSON(w, doc)
	})
}

// ReadJSONReport parses a report written by GenerateJSON
func ReadJSONReport(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("cannot read report %s", path), err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewMalformedResponseError("report is not a valid JSON document", err)
	}
	return &doc, nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
