// Package ocr implements the pattern path: image normalisation, text
// recognition and conversion of the recognised text into an analysis record.
package ocr

import (
	"bytes"
	"context"
	"image/png"
	"path/filepath"
	"strings"
	"time"

	"go-dashboard-inspector/internal/imaging"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/internal/metrics"
	"go-dashboard-inspector/pkg/models"

	"github.com/sirupsen/logrus"
)

// Extractor runs the OCR pipeline for single images
type Extractor struct {
	recognizer Recognizer
	now        func() time.Time
}

// NewExtractor creates an extractor using the given recognition engine
func NewExtractor(recognizer Recognizer) *Extractor {
	return &Extractor{
		recognizer: recognizer,
		now:        time.Now,
	}
}

// ExtractText returns the recognised text of the image at path, or "" when any
// stage fails. Failures are logged, never returned.
func (e *Extractor) ExtractText(ctx context.Context, path string) string {
	text, _ := e.extract(ctx, path)
	return text
}

func (e *Extractor) extract(ctx context.Context, path string) (string, *models.PreprocessDiagnostics) {
	log := logger.WithField("file", filepath.Base(path))

	img, _, err := imaging.Decode(path)
	if err != nil {
		log.WithError(err).Warn("Unreadable image, skipping recognition")
		return "", nil
	}

	normalized, diag := Preprocess(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, normalized); err != nil {
		log.WithError(err).Warn("Failed to encode normalised image")
		return "", &diag
	}

	text, err := e.recognizer.Recognize(ctx, buf.Bytes())
	if err != nil {
		log.WithError(err).Warn("Recognition engine unavailable")
		return "", &diag
	}

	log.WithFields(logrus.Fields{
		"otsu_threshold": diag.OtsuThreshold,
		"scale_factor":   diag.ScaleFactor,
		"blurry":         diag.Blurry,
		"text_length":    len(text),
	}).Debug("Recognition finished")

	// invalid bytes would not survive the JSON report
	return strings.ToValidUTF8(strings.TrimSpace(text), "\uFFFD"), &diag
}

// ProcessImage produces a pattern record for the image at path. It always
// returns a record; an unreadable image yields empty text and metrics.
func (e *Extractor) ProcessImage(ctx context.Context, path string) *models.AnalysisRecord {
	return e.ProcessImageWithExpected(ctx, path, "")
}

// ProcessImageWithExpected is ProcessImage plus accuracy scoring against an
// expected transcript when one is given.
func (e *Extractor) ProcessImageWithExpected(ctx context.Context, path, expected string) *models.AnalysisRecord {
	start := e.now()
	text, diag := e.extract(ctx, path)

	src := models.PatternSource{
		RawText:    text,
		Metrics:    metrics.Extract(text),
		ChartTypes: metrics.DetectChartTypes(text),
		Preprocess: diag,
	}
	if expected != "" {
		acc := ScoreAccuracy(expected, text)
		src.Accuracy = &acc
	}

	record := models.NewPatternRecord(start, imaging.Inspect(path), src)

	if text == "" {
		logger.WithField("file", record.ImageInfo.Filename).Warn("No text extracted, record carries no metrics")
	} else if src.Metrics.IsEmpty() {
		logger.WithField("file", record.ImageInfo.Filename).Debug("Text recognised but no metric pattern matched")
	}
	return record
}
