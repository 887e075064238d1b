package transport

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/internal/service"
	"go-dashboard-inspector/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func requestContext(c *gin.Context, deps Dependencies) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), deps.Config.RequestTimeout)
}

func uploadFiles(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c, deps)
		defer cancel()

		form, err := c.MultipartForm()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
				respondError(c, http.StatusRequestEntityTooLarge, "File too large", err)
				return
			}
			respondError(c, http.StatusBadRequest, "No files provided", err)
			return
		}
		headers, ok := form.File["files"]
		if !ok {
			respondError(c, http.StatusBadRequest, "No files provided",
				apperrors.NewValidationError("multipart field 'files' is missing", nil))
			return
		}

		req := service.BatchRequest{
			Files:        make([]service.UploadedFile, 0, len(headers)),
			OutputFormat: c.PostForm("output_format"),
			Method:       c.PostForm("method"),
			Context:      c.PostForm("context"),
			CustomPrompt: c.PostForm("custom_prompt"),
			ExpectedText: c.PostForm("expected_text"),
		}
		if v := c.PostForm("comparative"); v != "" {
			req.Comparative, _ = strconv.ParseBool(v)
		}
		if v := c.PostForm("summary"); v != "" {
			req.Summary, _ = strconv.ParseBool(v)
		}
		for _, h := range headers {
			req.Files = append(req.Files, uploadedFile(h))
		}

		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"files":      len(req.Files),
			"format":     req.OutputFormat,
			"method":     req.Method,
		}).Info("Processing upload")

		resp, err := deps.Service.ProcessBatch(ctx, req)
		if err != nil {
			fail(c, "upload processing failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func uploadedFile(h *multipart.FileHeader) service.UploadedFile {
	return service.UploadedFile{
		Filename: h.Filename,
		Size:     h.Size,
		Open: func() (io.ReadCloser, error) {
			return h.Open()
		},
	}
}

func downloadReport(reports ReportStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("filename")
		path, err := reports.Resolve(name)
		if err != nil {
			fail(c, "File not found", err)
			return
		}
		c.FileAttachment(path, name)
	}
}

func listReports(reports ReportStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		files, err := reports.List()
		if err != nil {
			fail(c, "cannot list reports", err)
			return
		}
		c.JSON(http.StatusOK, files)
	}
}

func processText(svc service.BatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ProcessTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "No text provided", err)
			return
		}
		resp, err := svc.ProcessText(req.Text)
		if err != nil {
			fail(c, "text processing failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func analyzeURL(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c, deps)
		defer cancel()

		var req models.AnalyzeURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		resp, err := deps.Service.AnalyzeURL(ctx, req)
		if err != nil {
			fail(c, "image analysis failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func analyzePanel(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c, deps)
		defer cancel()

		var req models.AnalyzePanelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		resp, err := deps.Service.AnalyzePanel(ctx, req)
		if err != nil {
			fail(c, "panel analysis failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func getSettings(settings models.Settings) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, settings)
	}
}

func getStats(pipeline PipelineStats, pool PoolStats) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pipeline": pipeline.GetStats(),
			"workers":  pool.GetStats(),
		})
	}
}

func testGrafana(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.GrafanaStatus{GrafanaURL: deps.Config.Grafana.URL}
		if deps.Grafana != nil {
			ctx, cancel := requestContext(c, deps)
			defer cancel()
			status.GrafanaURL = deps.Grafana.BaseURL()
			status.Connected = deps.Grafana.TestConnection(ctx)
			status.Authenticated = deps.Grafana.ValidateCredentials(ctx)
		}
		c.JSON(http.StatusOK, status)
	}
}

func listDashboards(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Grafana == nil {
			fail(c, "cannot list dashboards",
				apperrors.NewUpstreamUnavailableError("grafana is not configured", nil))
			return
		}
		ctx, cancel := requestContext(c, deps)
		defer cancel()

		dashboards, err := deps.Grafana.ListDashboards(ctx)
		if err != nil {
			fail(c, "cannot list dashboards", err)
			return
		}
		if q := strings.ToLower(strings.TrimSpace(c.Query("query"))); q != "" {
			filtered := dashboards[:0]
			for _, d := range dashboards {
				if strings.Contains(strings.ToLower(d.Title), q) {
					filtered = append(filtered, d)
				}
			}
			dashboards = filtered
		}
		c.JSON(http.StatusOK, dashboards)
	}
}
