package factory

import (
	"fmt"
	"strings"

	"go-dashboard-inspector/internal/config"
	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/internal/ocr"
	"go-dashboard-inspector/internal/storage"
	"go-dashboard-inspector/internal/strategy"
	"go-dashboard-inspector/internal/vision"
)

// Method selects the extraction path for a batch
type Method string

const (
	// MethodOCR extracts metrics with OCR plus regular expressions
	MethodOCR Method = "ocr"
	// MethodLLM asks a vision model for a structured description
	MethodLLM Method = "llm"
)

// ParseMethod maps a request token to a Method; empty means OCR
func ParseMethod(token string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", string(MethodOCR):
		return MethodOCR, nil
	case string(MethodLLM):
		return MethodLLM, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid analysis method: %q", token), nil).
			WithDetails("allowed: ocr, llm")
	}
}

// StrategyFactory creates extraction strategies
type StrategyFactory interface {
	CreateStrategy(method Method) (strategy.ExtractionStrategy, error)
	ModelEnabled() bool
}

// SinkType represents the report artifact destinations
type SinkType string

const (
	// NoSink keeps reports in the output folder only
	NoSink SinkType = "none"
	// AzureSink copies reports to Azure Blob Storage
	AzureSink SinkType = "azure"
)

// SinkFactory creates artifact sinks
type SinkFactory interface {
	CreateSink(sinkType SinkType) (storage.ArtifactSink, error)
}

type strategyFactory struct {
	pattern strategy.ExtractionStrategy
	model   strategy.ExtractionStrategy
}

// NewStrategyFactory wires the OCR strategy and, when a provider is
// configured, the vision model strategy
func NewStrategyFactory(cfg *config.Config) (StrategyFactory, error) {
	recognizer := ocr.NewTesseractRecognizer(ocr.TesseractOptions{
		Language:       cfg.OCR.Language,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
	})
	f := &strategyFactory{
		pattern: strategy.NewPatternStrategy(ocr.NewExtractor(recognizer)),
	}

	if cfg.Vision.Enabled() {
		transport, err := vision.NewTransport(cfg.Vision)
		if err != nil {
			return nil, err
		}
		f.model = strategy.NewModelStrategy(vision.NewAnalyzer(transport, cfg.Vision.Model))
	} else {
		logger.WithField("provider", cfg.Vision.Provider).Warn("Vision model not configured; llm method disabled")
	}
	return f, nil
}

// NewStrategyFactoryWith builds a factory from ready strategies; model may be nil
func NewStrategyFactoryWith(pattern, model strategy.ExtractionStrategy) StrategyFactory {
	return &strategyFactory{pattern: pattern, model: model}
}

// CreateStrategy returns the strategy for method
func (f *strategyFactory) CreateStrategy(method Method) (strategy.ExtractionStrategy, error) {
	switch method {
	case MethodOCR:
		return f.pattern, nil
	case MethodLLM:
		if f.model == nil {
			return nil, apperrors.NewUpstreamUnavailableError("vision model is not configured", nil).
				WithDetails("set ANTHROPIC_API_KEY or OPENAI_API_KEY")
		}
		return f.model, nil
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported analysis method: %s", method), nil)
	}
}

func (f *strategyFactory) ModelEnabled() bool {
	return f.model != nil
}

type sinkFactory struct {
	azure config.AzureConfig
}

// NewSinkFactory creates a sink factory over the Azure settings
func NewSinkFactory(azure config.AzureConfig) SinkFactory {
	return &sinkFactory{azure: azure}
}

// CreateSink creates the sink for sinkType
func (f *sinkFactory) CreateSink(sinkType SinkType) (storage.ArtifactSink, error) {
	switch sinkType {
	case NoSink:
		return storage.NoopSink{}, nil
	case AzureSink:
		if !f.azure.Enabled() {
			return nil, fmt.Errorf("azure storage is not configured")
		}
		return storage.NewAzureSink(f.azure.AccountName, f.azure.AccountKey, f.azure.Container)
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", sinkType)
	}
}

// DefaultSinkType picks azure when credentials are present
func DefaultSinkType(azure config.AzureConfig) SinkType {
	if azure.Enabled() {
		return AzureSink
	}
	return NoSink
}
