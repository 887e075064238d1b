// Package service runs one request's batch of screenshots through extraction
// and reporting.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/factory"
	"go-dashboard-inspector/internal/grafana"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/internal/metrics"
	"go-dashboard-inspector/internal/observer"
	"go-dashboard-inspector/internal/report"
	"go-dashboard-inspector/internal/repository"
	"go-dashboard-inspector/internal/storage"
	"go-dashboard-inspector/internal/strategy"
	"go-dashboard-inspector/internal/worker"
	"go-dashboard-inspector/pkg/models"
	"go-dashboard-inspector/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UploadedFile is one file of a multipart upload
type UploadedFile struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// BatchRequest is everything the upload endpoint collected
type BatchRequest struct {
	Files        []UploadedFile
	OutputFormat string
	Method       string
	Context      string
	CustomPrompt string
	ExpectedText string
	Comparative  bool
	Summary      bool
}

// BatchService turns screenshots into reports
type BatchService interface {
	ProcessBatch(ctx context.Context, req BatchRequest) (*models.UploadResponse, error)
	AnalyzeURL(ctx context.Context, req models.AnalyzeURLRequest) (*models.UploadResponse, error)
	AnalyzePanel(ctx context.Context, req models.AnalyzePanelRequest) (*models.UploadResponse, error)
	ProcessText(text string) (*models.ProcessTextResponse, error)
}

// Options are the service level defaults
type Options struct {
	DefaultFormat   string
	Limits          validation.BatchLimits
	AnalysisTimeout time.Duration
}

type batchService struct {
	repo       repository.ImageRepository
	strategies factory.StrategyFactory
	generator  *report.Generator
	sink       storage.ArtifactSink
	pool       *worker.Pool
	events     observer.Subject
	validator  *validation.BatchValidator
	opts       Options
	now        func() time.Time
}

// NewBatchService creates the batch service. The pool must already be started.
func NewBatchService(
	repo repository.ImageRepository,
	strategies factory.StrategyFactory,
	generator *report.Generator,
	sink storage.ArtifactSink,
	pool *worker.Pool,
	events observer.Subject,
	opts Options,
) BatchService {
	if opts.DefaultFormat == "" {
		opts.DefaultFormat = string(report.FormatCSV)
	}
	if sink == nil {
		sink = storage.NoopSink{}
	}
	validator := validation.NewBatchValidator()
	if opts.Limits != (validation.BatchLimits{}) {
		validator = validation.NewBatchValidatorWithLimits(opts.Limits)
	}
	return &batchService{
		repo:       repo,
		strategies: strategies,
		generator:  generator,
		sink:       sink,
		pool:       pool,
		events:     events,
		validator:  validator,
		opts:       opts,
		now:        time.Now,
	}
}

// plan is a validated request, ready to run
type plan struct {
	batchID      string
	format       report.Format
	method       factory.Method
	extraction   *strategy.ExtractionContext
	context      string
	customPrompt string
	expectedText string
	comparative  bool
	summary      bool
}

func (s *batchService) newPlan(format, method, context, customPrompt, expectedText string, comparative, summary bool) (*plan, error) {
	if strings.TrimSpace(format) == "" {
		format = s.opts.DefaultFormat
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	m, err := factory.ParseMethod(method)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateInstructions(context, customPrompt); err != nil {
		return nil, err
	}
	strat, err := s.strategies.CreateStrategy(m)
	if err != nil {
		return nil, err
	}
	return &plan{
		batchID:      uuid.NewString(),
		format:       f,
		method:       m,
		extraction:   strategy.NewExtractionContext(strat),
		context:      strings.TrimSpace(context),
		customPrompt: strings.TrimSpace(customPrompt),
		expectedText: expectedText,
		comparative:  comparative,
		summary:      summary,
	}, nil
}

// ProcessBatch stores the uploads, extracts one record per image in upload
// order and writes the requested report
func (s *batchService) ProcessBatch(ctx context.Context, req BatchRequest) (*models.UploadResponse, error) {
	start := s.now()

	infos := make([]validation.UploadInfo, len(req.Files))
	for i, f := range req.Files {
		infos[i] = validation.UploadInfo{Filename: f.Filename, Size: f.Size}
	}
	if err := s.validator.ValidateUploads(infos); err != nil {
		return nil, err
	}

	p, err := s.newPlan(req.OutputFormat, req.Method, req.Context, req.CustomPrompt, req.ExpectedText, req.Comparative, req.Summary)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, observer.PipelineEvent{
		EventType: observer.BatchStarted,
		BatchID:   p.batchID,
		Method:    string(p.method),
		Success:   true,
		Metadata:  map[string]interface{}{"files": len(req.Files), "format": p.format},
	})

	paths := make([]string, 0, len(req.Files))
	skipped := 0
	for i, f := range req.Files {
		if !s.validator.Accept(infos[i]) {
			skipped++
			s.skip(ctx, p, f.Filename, "unsupported or empty file")
			continue
		}
		path, err := s.save(f)
		if err != nil {
			skipped++
			s.skip(ctx, p, f.Filename, err.Error())
			continue
		}
		paths = append(paths, path)
	}

	return s.run(ctx, p, start, paths, skipped)
}

// AnalyzeURL downloads one screenshot and reports on it
func (s *batchService) AnalyzeURL(ctx context.Context, req models.AnalyzeURLRequest) (*models.UploadResponse, error) {
	start := s.now()
	p, err := s.newPlan(req.OutputFormat, req.Method, req.Context, req.CustomPrompt, req.ExpectedText, false, false)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, observer.PipelineEvent{EventType: observer.BatchStarted, BatchID: p.batchID, Method: string(p.method), Success: true})

	path, err := s.repo.FetchRemote(ctx, req.URL)
	if err != nil {
		s.fail(ctx, p, start, err)
		return nil, err
	}
	return s.run(ctx, p, start, []string{path}, 0)
}

// AnalyzePanel renders a Grafana panel and reports on it
func (s *batchService) AnalyzePanel(ctx context.Context, req models.AnalyzePanelRequest) (*models.UploadResponse, error) {
	start := s.now()
	p, err := s.newPlan(req.OutputFormat, req.Method, req.Context, req.CustomPrompt, "", false, false)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, observer.PipelineEvent{EventType: observer.BatchStarted, BatchID: p.batchID, Method: string(p.method), Success: true})

	path, err := s.repo.RenderPanel(ctx, req.DashboardUID, grafana.RenderOptions{
		PanelID: req.PanelID,
		Width:   req.Width,
		Height:  req.Height,
	})
	if err != nil {
		s.fail(ctx, p, start, err)
		return nil, err
	}
	return s.run(ctx, p, start, []string{path}, 0)
}

// ProcessText runs the pattern extractor over raw text
func (s *batchService) ProcessText(text string) (*models.ProcessTextResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("No text provided", nil)
	}
	return &models.ProcessTextResponse{
		Success:     true,
		Metrics:     metrics.Extract(text),
		ChartTypes:  metrics.DetectChartTypes(text),
		ProcessedAt: s.now().UTC(),
	}, nil
}

func (s *batchService) save(f UploadedFile) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", apperrors.NewUnreadableInputError("cannot open upload", err)
	}
	defer rc.Close()
	return s.repo.SaveUpload(f.Filename, rc)
}

func (s *batchService) run(ctx context.Context, p *plan, start time.Time, paths []string, skipped int) (*models.UploadResponse, error) {
	results := worker.Map(ctx, s.pool, len(paths), func(ctx context.Context, i int) *models.AnalysisRecord {
		return s.extract(ctx, p, paths[i])
	})

	// unfinished batches fail as a whole
	if err := ctx.Err(); err != nil {
		timeoutErr := apperrors.NewTimeoutError("Batch did not finish before the request deadline", err).
			WithDetails(fmt.Sprintf("%d images queued", len(paths)))
		s.fail(ctx, p, start, timeoutErr)
		return nil, timeoutErr
	}

	records := make([]*models.AnalysisRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, r)
		}
	}
	skipped += len(paths) - len(records)

	if len(records) == 0 {
		err := apperrors.NewNoRecordsError("No images could be processed", nil)
		s.fail(ctx, p, start, err)
		return nil, err
	}

	reportPath, err := s.generator.Generate(p.format, records, "")
	if err != nil {
		s.publish(ctx, observer.PipelineEvent{EventType: observer.ReportFailed, BatchID: p.batchID, ErrorMessage: err.Error()})
		s.fail(ctx, p, start, err)
		return nil, err
	}
	s.publish(ctx, observer.PipelineEvent{
		EventType: observer.ReportGenerated,
		BatchID:   p.batchID,
		Success:   true,
		Metadata:  map[string]interface{}{"report": filepath.Base(reportPath), "records": len(records)},
	})

	summary := models.UploadSummary{
		BatchID:        p.batchID,
		TotalImages:    len(records),
		SkippedImages:  skipped,
		ReportFile:     filepath.Base(reportPath),
		OutputFormat:   string(p.format),
		AnalysisMethod: p.extraction.GetCurrentStrategy(),
		ProcessedAt:    s.now().UTC(),
	}
	artifacts := []string{reportPath}

	if p.comparative && p.method == factory.MethodLLM {
		cmp, err := s.generator.GenerateComparative(records, "")
		if err != nil {
			logger.WithBatch(p.batchID).WithError(err).Warn("Comparative report skipped")
			s.publish(ctx, observer.PipelineEvent{EventType: observer.ReportFailed, BatchID: p.batchID, ErrorMessage: err.Error()})
		} else {
			summary.ComparativeFile = filepath.Base(cmp)
			artifacts = append(artifacts, cmp)
			s.publish(ctx, observer.PipelineEvent{EventType: observer.ReportGenerated, BatchID: p.batchID, Success: true,
				Metadata: map[string]interface{}{"report": summary.ComparativeFile}})
		}
	}

	if p.summary && p.method == factory.MethodOCR {
		sum, err := s.generator.GenerateSummary(records, "")
		if err != nil {
			logger.WithBatch(p.batchID).WithError(err).Warn("Summary report skipped")
			s.publish(ctx, observer.PipelineEvent{EventType: observer.ReportFailed, BatchID: p.batchID, ErrorMessage: err.Error()})
		} else {
			summary.SummaryFile = filepath.Base(sum)
			artifacts = append(artifacts, sum)
			s.publish(ctx, observer.PipelineEvent{EventType: observer.ReportGenerated, BatchID: p.batchID, Success: true,
				Metadata: map[string]interface{}{"report": summary.SummaryFile}})
		}
	}

	summary.ArtifactURLs = s.upload(ctx, p, artifacts)
	elapsed := s.now().Sub(start)
	summary.ProcessingTimeMS = elapsed.Milliseconds()

	s.publish(ctx, observer.PipelineEvent{
		EventType:      observer.BatchCompleted,
		BatchID:        p.batchID,
		Method:         string(p.method),
		ProcessingTime: elapsed,
		Success:        true,
		Metadata:       map[string]interface{}{"records": len(records), "skipped": skipped},
	})

	return &models.UploadResponse{Success: true, Summary: summary, ReportPath: reportPath}, nil
}

// extract never fails the batch: an error or nil record only excludes this image
func (s *batchService) extract(ctx context.Context, p *plan, path string) *models.AnalysisRecord {
	if s.opts.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AnalysisTimeout)
		defer cancel()
	}

	name := storage.OriginalName(path)
	started := s.now()
	rec, err := p.extraction.ExecuteExtraction(ctx, strategy.Request{
		Path:         path,
		Context:      p.context,
		CustomPrompt: p.customPrompt,
		ExpectedText: p.expectedText,
	})
	if err != nil || rec == nil {
		msg := "no record produced"
		if err != nil {
			msg = err.Error()
		}
		s.skip(ctx, p, name, msg)
		return nil
	}

	rec.ImageInfo.Filename = name
	if !rec.Valid() {
		s.skip(ctx, p, name, "malformed record: kind does not match payload")
		return nil
	}
	s.publish(ctx, observer.PipelineEvent{
		EventType:      observer.RecordExtracted,
		BatchID:        p.batchID,
		Filename:       name,
		Method:         string(p.method),
		ProcessingTime: s.now().Sub(started),
		Success:        true,
	})
	return rec
}

func (s *batchService) upload(ctx context.Context, p *plan, paths []string) []string {
	var urls []string
	for _, path := range paths {
		url, err := s.sink.Upload(ctx, path)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"batch_id": p.batchID,
				"sink":     s.sink.Name(),
				"report":   filepath.Base(path),
			}).WithError(err).Warn("Report upload failed")
			continue
		}
		if url == "" {
			continue
		}
		urls = append(urls, url)
		s.publish(ctx, observer.PipelineEvent{
			EventType: observer.ArtifactUploaded,
			BatchID:   p.batchID,
			Success:   true,
			Metadata:  map[string]interface{}{"url": url},
		})
	}
	return urls
}

func (s *batchService) skip(ctx context.Context, p *plan, filename, reason string) {
	s.publish(ctx, observer.PipelineEvent{
		EventType:    observer.RecordSkipped,
		BatchID:      p.batchID,
		Filename:     filename,
		Method:       string(p.method),
		ErrorMessage: reason,
	})
}

func (s *batchService) fail(ctx context.Context, p *plan, start time.Time, err error) {
	s.publish(ctx, observer.PipelineEvent{
		EventType:      observer.BatchFailed,
		BatchID:        p.batchID,
		Method:         string(p.method),
		ProcessingTime: s.now().Sub(start),
		ErrorMessage:   err.Error(),
		Metadata:       map[string]interface{}{"error_type": errorType(err)},
	})
}

func (s *batchService) publish(ctx context.Context, event observer.PipelineEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

func errorType(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type)
	}
	return string(apperrors.ErrorTypeInternal)
}
