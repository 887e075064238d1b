// Package vision implements the model-guided path: a dashboard screenshot is
// sent to a vision-capable language model and its JSON reply becomes an
// analysis record.
package vision

import (
	"context"
	"time"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/imaging"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	// MaxImageSide bounds the longest side of images sent to the model
	MaxImageSide = 2048
	// JPEGQuality is the re-encoding quality for model uploads
	JPEGQuality = 85

	mediaTypeJPEG = "image/jpeg"
)

// Analyzer turns dashboard images into model records
type Analyzer struct {
	transport Transport
	modelName string
	now       func() time.Time
}

// NewAnalyzer creates an analyzer reporting modelName on its records
func NewAnalyzer(transport Transport, modelName string) *Analyzer {
	return &Analyzer{
		transport: transport,
		modelName: modelName,
		now:       time.Now,
	}
}

// Analyze runs the standard dashboard analysis. additionalContext, when not
// empty, is appended to the user prompt.
func (a *Analyzer) Analyze(ctx context.Context, path, additionalContext string) (*models.AnalysisRecord, error) {
	return a.analyze(ctx, path, additionalContext, "")
}

// AnalyzeWithPrompt replaces the analysis prompt with caller instructions and
// records them on the result.
func (a *Analyzer) AnalyzeWithPrompt(ctx context.Context, path, instructions string) (*models.AnalysisRecord, error) {
	return a.analyze(ctx, path, "", instructions)
}

func (a *Analyzer) analyze(ctx context.Context, path, additionalContext, instructions string) (*models.AnalysisRecord, error) {
	start := a.now()
	info := imaging.Inspect(path)
	log := logger.WithFields(logrus.Fields{
		"file":  info.Filename,
		"model": a.modelName,
	})

	img, _, err := imaging.Decode(path)
	if err != nil {
		log.WithError(err).Warn("Unreadable image, skipping model analysis")
		return nil, apperrors.NewUnreadableInputError("image could not be decoded", err)
	}
	encoded, err := imaging.EncodeJPEG(imaging.FitWithin(img, MaxImageSide), JPEGQuality)
	if err != nil {
		log.WithError(err).Warn("Failed to encode image for model")
		return nil, apperrors.NewUnreadableInputError("image could not be re-encoded", err)
	}

	system, user := buildPrompts(additionalContext, instructions)
	reply, err := a.transport.Complete(ctx, Prompt{
		System:    system,
		User:      user,
		Image:     encoded,
		MediaType: mediaTypeJPEG,
	})
	if err != nil {
		log.WithError(err).Error("Vision model request failed")
		if ctx.Err() != nil {
			return nil, apperrors.NewTimeoutError("vision model request timed out", err)
		}
		return nil, apperrors.NewUpstreamUnavailableError("vision model request failed", err)
	}

	src, parseErr := parseReply(reply)
	if parseErr != nil {
		log.WithError(parseErr).Warn("Model reply was not structured, keeping raw text")
		src = models.ModelSource{
			Panels:       []models.PanelObservation{},
			Metrics:      map[string]any{},
			Alerts:       []string{},
			Insights:     []string{},
			RawModelText: reply,
			ParsingError: true,
		}
	}
	src.ModelName = a.modelName
	src.CustomPrompt = instructions

	log.WithFields(logrus.Fields{
		"panels":        len(src.Panels),
		"health":        src.Health(),
		"parsing_error": src.ParsingError,
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("Dashboard analysed by model")

	return models.NewModelRecord(start, info, src), nil
}
