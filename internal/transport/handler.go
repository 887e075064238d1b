package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-dashboard-inspector/internal/config"
	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/grafana"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/internal/observer"
	"go-dashboard-inspector/internal/service"
	"go-dashboard-inspector/internal/worker"
	"go-dashboard-inspector/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReportStore lists and resolves generated artifacts
type ReportStore interface {
	List() ([]models.ReportFile, error)
	Resolve(name string) (string, error)
}

// GrafanaAPI is the part of the Grafana client exposed over HTTP
type GrafanaAPI interface {
	BaseURL() string
	TestConnection(ctx context.Context) bool
	ValidateCredentials(ctx context.Context) bool
	ListDashboards(ctx context.Context) ([]grafana.Dashboard, error)
}

// PipelineStats is the source of /api/stats pipeline counters
type PipelineStats interface {
	GetStats() observer.Stats
}

// PoolStats is the source of /api/stats worker counters
type PoolStats interface {
	GetStats() worker.Stats
}

// Dependencies are the collaborators of the HTTP surface. Grafana may be nil.
type Dependencies struct {
	Service  service.BatchService
	Reports  ReportStore
	Grafana  GrafanaAPI
	Pipeline PipelineStats
	Pool     PoolStats
	Settings models.Settings
	Config   *config.Config
}

// NewHandler builds the gin router
func NewHandler(deps Dependencies) http.Handler {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(deps.Config.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.POST("/upload", uploadFiles(deps))
	r.GET("/download/:filename", downloadReport(deps.Reports))

	api := r.Group("/api")
	{
		api.GET("/reports", listReports(deps.Reports))
		api.POST("/process-text", processText(deps.Service))
		api.POST("/analyze-url", analyzeURL(deps))
		api.POST("/analyze-panel", analyzePanel(deps))
		api.GET("/settings", getSettings(deps.Settings))
		api.GET("/stats", getStats(deps.Pipeline, deps.Pool))
		api.GET("/test-grafana", testGrafana(deps))
		api.GET("/dashboards", listDashboards(deps))
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"request_id":  c.GetString("request_id"),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		}).Info("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.GetString("request_id"),
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}

// fail responds with the status carried by err
func fail(c *gin.Context, message string, err error) {
	respondError(c, determineStatusCode(err), message, err)
}
