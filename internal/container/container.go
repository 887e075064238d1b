package container

import (
	"context"
	"fmt"
	"net/http"

	"go-dashboard-inspector/internal/config"
	"go-dashboard-inspector/internal/factory"
	"go-dashboard-inspector/internal/grafana"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/internal/observer"
	"go-dashboard-inspector/internal/report"
	"go-dashboard-inspector/internal/repository"
	"go-dashboard-inspector/internal/scheduler"
	"go-dashboard-inspector/internal/service"
	"go-dashboard-inspector/internal/storage"
	"go-dashboard-inspector/internal/transport"
	"go-dashboard-inspector/internal/worker"
	"go-dashboard-inspector/pkg/models"
	"go-dashboard-inspector/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config       *config.Config
	fetcher      storage.Fetcher
	grafana      *grafana.Client
	repository   repository.ImageRepository
	strategies   factory.StrategyFactory
	generator    *report.Generator
	sink         storage.ArtifactSink
	pool         *worker.Pool
	metrics      *observer.MetricsObserver
	batchService service.BatchService
	scheduler    *scheduler.Scheduler
	handler      http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	fetcher := storage.NewHTTPFetcher(cfg.RequestTimeout)
	uploads := storage.NewUploadStore(cfg.UploadFolder)

	var grafanaClient *grafana.Client
	var renderer repository.PanelRenderer
	if cfg.Grafana.Enabled() {
		client, err := grafana.NewClient(cfg.Grafana, fetcher)
		if err != nil {
			return nil, fmt.Errorf("failed to create grafana client: %w", err)
		}
		grafanaClient = client
		renderer = client
	} else {
		logger.WithField("grafana_url", cfg.Grafana.URL).Warn("Grafana credentials not configured; dashboard endpoints disabled")
	}

	imageRepository := repository.NewFileImageRepository(uploads, fetcher, renderer)

	strategies, err := factory.NewStrategyFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create strategies: %w", err)
	}

	generator := report.NewGenerator(cfg.OutputFolder)

	sinkType := factory.DefaultSinkType(cfg.Azure)
	sink, err := factory.NewSinkFactory(cfg.Azure).CreateSink(sinkType)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact sink: %w", err)
	}

	pool := worker.NewPool(cfg.Workers)
	pool.Start()

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	limits := validation.DefaultBatchLimits()
	limits.MaxFiles = cfg.MaxUploadFiles
	limits.MaxFileSize = cfg.MaxRequestBodySize

	batchService := service.NewBatchService(imageRepository, strategies, generator, sink, pool, events, service.Options{
		DefaultFormat:   cfg.DefaultOutputFormat,
		Limits:          limits,
		AnalysisTimeout: cfg.AnalysisTimeout,
	})

	c := &Container{
		config:       cfg,
		fetcher:      fetcher,
		grafana:      grafanaClient,
		repository:   imageRepository,
		strategies:   strategies,
		generator:    generator,
		sink:         sink,
		pool:         pool,
		metrics:      metrics,
		batchService: batchService,
	}

	if cfg.Scheduler.Enabled {
		var lister scheduler.DashboardLister
		if grafanaClient != nil {
			lister = grafanaClient
		}
		c.scheduler, err = scheduler.New(cfg.Scheduler, lister, generator)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
	}

	deps := transport.Dependencies{
		Service:  batchService,
		Reports:  generator,
		Pipeline: metrics,
		Pool:     pool,
		Settings: c.settings(),
		Config:   cfg,
	}
	if grafanaClient != nil {
		deps.Grafana = grafanaClient
	}
	c.handler = transport.NewHandler(deps)

	return c, nil
}

func (c *Container) settings() models.Settings {
	formats := make([]string, 0, len(report.Formats))
	for _, f := range report.Formats {
		formats = append(formats, string(f))
	}
	methods := []string{string(factory.MethodOCR)}
	if c.strategies.ModelEnabled() {
		methods = append(methods, string(factory.MethodLLM))
	}
	return models.Settings{
		GrafanaURL:          c.config.Grafana.URL,
		DefaultOutputFormat: c.config.DefaultOutputFormat,
		OutputFormats:       formats,
		Methods:             methods,
		VisionProvider:      c.config.Vision.Provider,
		VisionModel:         c.config.Vision.Model,
		OCRLanguage:         c.config.OCR.Language,
		ArtifactSink:        c.sink.Name(),
		SchedulerEnabled:    c.scheduler != nil,
	}
}

// Start launches the background jobs
func (c *Container) Start() {
	if c.scheduler != nil {
		c.scheduler.Start()
		logger.WithField("jobs", c.scheduler.Entries()).Info("Scheduler started")
	}
}

// Close stops the scheduler, waiting for running jobs until ctx expires,
// then releases the worker pool
func (c *Container) Close(ctx context.Context) {
	if c.scheduler != nil {
		select {
		case <-c.scheduler.Stop().Done():
		case <-ctx.Done():
			logger.Warn("Scheduler jobs still running at shutdown")
		}
	}
	c.pool.Close()
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
