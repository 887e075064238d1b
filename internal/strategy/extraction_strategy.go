package strategy

import (
	"context"

	"go-dashboard-inspector/pkg/models"
)

// Request describes one image to extract plus the caller's per-batch options
type Request struct {
	Path         string
	Context      string
	CustomPrompt string
	ExpectedText string
}

// ExtractionStrategy turns one image into an analysis record. A nil record
// with an error means the image is excluded from the batch.
type ExtractionStrategy interface {
	Extract(ctx context.Context, req Request) (*models.AnalysisRecord, error)
	GetStrategyName() string
}

// PatternExtractor is the OCR pipeline as seen by the pattern strategy
type PatternExtractor interface {
	ProcessImageWithExpected(ctx context.Context, path, expected string) *models.AnalysisRecord
}

// ModelAnalyzer is the vision analyzer as seen by the model strategy
type ModelAnalyzer interface {
	Analyze(ctx context.Context, path, additionalContext string) (*models.AnalysisRecord, error)
	AnalyzeWithPrompt(ctx context.Context, path, instructions string) (*models.AnalysisRecord, error)
}

// PatternStrategy extracts metrics with OCR plus regular expressions
type PatternStrategy struct {
	extractor PatternExtractor
}

// NewPatternStrategy creates the OCR strategy
func NewPatternStrategy(extractor PatternExtractor) ExtractionStrategy {
	return &PatternStrategy{extractor: extractor}
}

// Extract always yields a record; OCR failures degrade to empty text
func (s *PatternStrategy) Extract(ctx context.Context, req Request) (*models.AnalysisRecord, error) {
	return s.extractor.ProcessImageWithExpected(ctx, req.Path, req.ExpectedText), nil
}

// GetStrategyName returns the strategy name
func (s *PatternStrategy) GetStrategyName() string {
	return "ocr"
}

// ModelStrategy asks a vision model to describe the dashboard
type ModelStrategy struct {
	analyzer ModelAnalyzer
}

// NewModelStrategy creates the vision model strategy
func NewModelStrategy(analyzer ModelAnalyzer) ExtractionStrategy {
	return &ModelStrategy{analyzer: analyzer}
}

// Extract uses custom instructions when given, the standard analysis otherwise
func (s *ModelStrategy) Extract(ctx context.Context, req Request) (*models.AnalysisRecord, error) {
	if req.CustomPrompt != "" {
		return s.analyzer.AnalyzeWithPrompt(ctx, req.Path, req.CustomPrompt)
	}
	return s.analyzer.Analyze(ctx, req.Path, req.Context)
}

// GetStrategyName returns the strategy name
func (s *ModelStrategy) GetStrategyName() string {
	return "llm"
}

// ExtractionContext holds the strategy selected for a batch
type ExtractionContext struct {
	strategy ExtractionStrategy
}

// NewExtractionContext creates a context around strategy
func NewExtractionContext(strategy ExtractionStrategy) *ExtractionContext {
	return &ExtractionContext{strategy: strategy}
}

// ExecuteExtraction runs the current strategy on one image
func (c *ExtractionContext) ExecuteExtraction(ctx context.Context, req Request) (*models.AnalysisRecord, error) {
	return c.strategy.Extract(ctx, req)
}

// GetCurrentStrategy returns the current strategy name
func (c *ExtractionContext) GetCurrentStrategy() string {
	return c.strategy.GetStrategyName()
}
