// Package report renders analysis records into on-disk artifacts.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Filename prefixes per report family
const (
	PrefixPattern     = "grafana_report_"
	PrefixModel       = "llm_grafana_report_"
	PrefixComparative = "comparative_dashboard_analysis_"
	PrefixSummary     = "grafana_summary_"

	// TimestampFormat is the second-resolution stamp embedded in report names
	TimestampFormat = "2006-01-02_15-04-05"

	displayTimeFormat = "2006-01-02 15:04:05"
)

// Format is an output format token accepted by the upload layer
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTXT  Format = "txt"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Formats lists the accepted output formats
var Formats = []Format{FormatCSV, FormatTXT, FormatJSON, FormatXLSX}

// ParseFormat validates a format token, case-insensitively
func ParseFormat(token string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(token)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unsupported output format %q", token), nil)
}

// Generator writes reports into a single output directory
type Generator struct {
	outputDir string
	now       func() time.Time
	suffix    func() string
}

// NewGenerator returns a generator writing into outputDir. The directory is
// created on first write.
func NewGenerator(outputDir string) *Generator {
	return &Generator{
		outputDir: outputDir,
		now:       time.Now,
		suffix:    func() string { return uuid.New().String()[:8] },
	}
}

// OutputDir returns the directory reports are written to
func (g *Generator) OutputDir() string {
	return g.outputDir
}

// Generate dispatches to the writer for format
func (g *Generator) Generate(format Format, records []*models.AnalysisRecord, filename string) (string, error) {
	switch format {
	case FormatCSV:
		return g.GenerateCSV(records, filename)
	case FormatTXT:
		return g.GenerateTXT(records, filename)
	case FormatJSON:
		return g.GenerateJSON(records, filename)
	case FormatXLSX:
		return g.GenerateXLSX(records, filename)
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unsupported output format %q", format), nil)
}

// reportName builds "<prefix><timestamp>_<suffix>.<ext>" unless the caller
// asked for a specific name.
func (g *Generator) reportName(requested, prefix, ext string) string {
	if requested != "" {
		return filepath.Base(requested)
	}
	return fmt.Sprintf("%s%s_%s.%s", prefix, g.now().Format(TimestampFormat), g.suffix(), ext)
}

// familyPrefix picks the model prefix only when every record came from the model path
func familyPrefix(records []*models.AnalysisRecord) string {
	if len(records) == 0 {
		return PrefixPattern
	}
	for _, r := range records {
		if r.Kind != models.SourceModel {
			return PrefixPattern
		}
	}
	return PrefixModel
}

// analysisMethod describes how the records were produced
func analysisMethod(records []*models.AnalysisRecord) string {
	var pattern, model int
	modelName := ""
	for _, r := range records {
		switch r.Kind {
		case models.SourcePattern:
			pattern++
		case models.SourceModel:
			model++
			if modelName == "" {
				modelName = r.Model.ModelName
			}
		}
	}
	switch {
	case model > 0 && pattern > 0:
		return "mixed"
	case model > 0:
		if modelName == "" {
			return "llm"
		}
		return "llm:" + modelName
	default:
		return "ocr"
	}
}

// write renders into a temporary file in the output directory and renames it
// into place, so a failed write never leaves a partial report behind.
func (g *Generator) write(name string, render func(w io.Writer) error) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", apperrors.NewWriteFailureError("cannot create output directory", err)
	}

	tmp, err := os.CreateTemp(g.outputDir, ".report-*.tmp")
	if err != nil {
		return "", apperrors.NewWriteFailureError("cannot create report file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	bw := bufio.NewWriter(tmp)
	if err := render(bw); err != nil {
		cleanup()
		return "", apperrors.NewWriteFailureError("failed to render report", err)
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return "", apperrors.NewWriteFailureError("failed to write report", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", apperrors.NewWriteFailureError("failed to close report", err)
	}

	dest := filepath.Join(g.outputDir, name)
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", apperrors.NewWriteFailureError("failed to move report into place", err)
	}

	logger.WithFields(logrus.Fields{
		"report": name,
		"dir":    g.outputDir,
	}).Info("Report written")
	return dest, nil
}

// WriteJSON writes v as an indented JSON artifact called name
func (g *Generator) WriteJSON(name string, v any) (string, error) {
	return g.write(filepath.Base(name), func(w io.Writer) error {
		return encodeJSON(w, v)
	})
}

// WriteText writes a plain text artifact called name
func (g *Generator) WriteText(name, content string) (string, error) {
	return g.write(filepath.Base(name), func(w io.Writer) error {
		_, err := io.WriteString(w, content)
		return err
	})
}

// List returns the generated artifacts in the output directory, newest first
func (g *Generator) List() ([]models.ReportFile, error) {
	entries, err := os.ReadDir(g.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.ReportFile{}, nil
		}
		return nil, apperrors.NewInternalError("cannot list output directory", err)
	}

	files := make([]models.ReportFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, models.ReportFile{
			Filename: e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Resolve maps a bare report name to its path, refusing anything that would
// escape the output directory.
func (g *Generator) Resolve(name string) (string, error) {
	clean := filepath.Base(filepath.Clean(name))
	if clean != name || clean == "." || clean == ".." || strings.HasPrefix(clean, ".") {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid report name %q", name), nil)
	}
	path := filepath.Join(g.outputDir, clean)
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("report %s not found", clean), err)
	}
	return path, nil
}

func rule(ch string, n int) string {
	return strings.Repeat(ch, n)
}
