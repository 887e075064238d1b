package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-dashboard-inspector/internal/config"
	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/grafana"
	"go-dashboard-inspector/internal/observer"
	"go-dashboard-inspector/internal/report"
	"go-dashboard-inspector/internal/service"
	"go-dashboard-inspector/internal/worker"
	"go-dashboard-inspector/pkg/models"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	batch     service.BatchRequest
	contents  []string
	batchErr  error
	urlReq    models.AnalyzeURLRequest
	panelReq  models.AnalyzePanelRequest
	textInput string
}

func (f *fakeService) ProcessBatch(ctx context.Context, req service.BatchRequest) (*models.UploadResponse, error) {
	f.batch = req
	for _, file := range req.Files {
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		f.contents = append(f.contents, string(data))
	}
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return &models.UploadResponse{
		Success:    true,
		Summary:    models.UploadSummary{TotalImages: len(req.Files), ReportFile: "grafana_report_x.csv", OutputFormat: "csv"},
		ReportPath: "outputs/grafana_report_x.csv",
	}, nil
}

func (f *fakeService) AnalyzeURL(ctx context.Context, req models.AnalyzeURLRequest) (*models.UploadResponse, error) {
	f.urlReq = req
	return &models.UploadResponse{Success: true}, nil
}

func (f *fakeService) AnalyzePanel(ctx context.Context, req models.AnalyzePanelRequest) (*models.UploadResponse, error) {
	f.panelReq = req
	return &models.UploadResponse{Success: true}, nil
}

func (f *fakeService) ProcessText(text string) (*models.ProcessTextResponse, error) {
	f.textInput = text
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("No text provided", nil)
	}
	return &models.ProcessTextResponse{Success: true, Metrics: models.NewMetricBag(), ChartTypes: []string{"unknown"}}, nil
}

type fakeGrafana struct {
	connected  bool
	authorized bool
	dashboards []grafana.Dashboard
	err        error
}

func (f *fakeGrafana) BaseURL() string { return "http://grafana:3000" }
func (f *fakeGrafana) TestConnection(ctx context.Context) bool { return f.connected }
func (f *fakeGrafana) ValidateCredentials(ctx context.Context) bool { return f.authorized }
func (f *fakeGrafana) ListDashboards(ctx context.Context) ([]grafana.Dashboard, error) {
	return f.dashboards, f.err
}

type testServer struct {
	handler   http.Handler
	svc       *fakeService
	outputDir string
}

func newTestServer(t *testing.T, g GrafanaAPI, maxBody int64) *testServer {
	t.Helper()
	cfg := config.Defaults()
	cfg.RequestTimeout = 5 * time.Second
	if maxBody > 0 {
		cfg.MaxRequestBodySize = maxBody
	}

	dir := t.TempDir()
	svc := &fakeService{}
	pool := worker.NewPool(1)

	deps := Dependencies{
		Service:  svc,
		Reports:  report.NewGenerator(dir),
		Pipeline: observer.NewMetricsObserver(),
		Pool:     pool,
		Settings: models.Settings{GrafanaURL: "http://grafana:3000", DefaultOutputFormat: "csv"},
		Config:   cfg,
	}
	if g != nil {
		deps.Grafana = g
	}
	return &testServer{handler: NewHandler(deps), svc: svc, outputDir: dir}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string, order []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range order {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(files[name]))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil, 0)
	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a request id header")
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "available" {
		t.Errorf("Unexpected body %v", body)
	}
}

func TestUpload(t *testing.T) {
	s := newTestServer(t, nil, 0)
	body, ctype := multipartBody(t,
		map[string]string{"output_format": "txt", "method": "llm", "context": "prod", "comparative": "true"},
		map[string]string{"b.png": "second", "a.png": "first"},
		[]string{"b.png", "a.png"},
	)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)

	w := s.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	got := s.svc.batch
	if len(got.Files) != 2 || got.Files[0].Filename != "b.png" || got.Files[1].Filename != "a.png" {
		t.Errorf("Expected files in upload order, got %+v", got.Files)
	}
	if s.svc.contents[0] != "second" {
		t.Errorf("Expected file content to be readable, got %v", s.svc.contents)
	}
	if got.OutputFormat != "txt" || got.Method != "llm" || got.Context != "prod" || !got.Comparative {
		t.Errorf("Unexpected request fields: %+v", got)
	}

	var resp models.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || !resp.Success || resp.Summary.TotalImages != 2 {
		t.Errorf("Unexpected response %s", w.Body.String())
	}
}

func TestUpload_NoFiles(t *testing.T) {
	s := newTestServer(t, nil, 0)

	body, ctype := multipartBody(t, map[string]string{"output_format": "csv"}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	if w := s.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing files field, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if w := s.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a non-multipart body, got %d", w.Code)
	}
}

func TestUpload_ServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no records", apperrors.NewNoRecordsError("No images could be processed", nil), http.StatusUnprocessableEntity},
		{"bad format", apperrors.NewValidationError("unsupported output format", nil), http.StatusBadRequest},
		{"write failure", apperrors.NewWriteFailureError("disk full", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, 0)
			s.svc.batchErr = tt.err

			body, ctype := multipartBody(t, nil, map[string]string{"a.png": "x"}, []string{"a.png"})
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ctype)

			w := s.do(req)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Error == "" {
				t.Errorf("Expected an error body, got %s", w.Body.String())
			}
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t, nil, 256)
	body, ctype := multipartBody(t, nil, map[string]string{"a.png": strings.Repeat("x", 4096)}, []string{"a.png"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)

	if w := s.do(req); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}
}

func TestDownloadAndListReports(t *testing.T) {
	s := newTestServer(t, nil, 0)
	name := "grafana_report_2026-03-14_09-26-53_abcd1234.csv"
	if err := os.WriteFile(filepath.Join(s.outputDir, name), []byte("filename\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/download/"+name, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), name) {
		t.Errorf("Expected attachment header, got %q", w.Header().Get("Content-Disposition"))
	}

	if w := s.do(httptest.NewRequest(http.MethodGet, "/download/missing.csv", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	var files []models.ReportFile
	if err := json.Unmarshal(w.Body.Bytes(), &files); err != nil || len(files) != 1 || files[0].Filename != name {
		t.Errorf("Unexpected report list %s", w.Body.String())
	}
}

func TestProcessText(t *testing.T) {
	s := newTestServer(t, nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/process-text", strings.NewReader(`{"text":"CPU 45%"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := s.do(req); w.Code != http.StatusOK || s.svc.textInput != "CPU 45%" {
		t.Errorf("Expected 200 and forwarded text, got %d (%q)", w.Code, s.svc.textInput)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/process-text", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if w := s.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing text, got %d", w.Code)
	}
}

func TestAnalyzeEndpoints(t *testing.T) {
	s := newTestServer(t, nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-url",
		strings.NewReader(`{"url":"http://example.com/shot.png","method":"ocr"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := s.do(req); w.Code != http.StatusOK || s.svc.urlReq.URL != "http://example.com/shot.png" {
		t.Errorf("Unexpected analyze-url result %d %+v", w.Code, s.svc.urlReq)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/analyze-panel",
		strings.NewReader(`{"dashboard_uid":"node","panel_id":4,"method":"llm"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := s.do(req); w.Code != http.StatusOK || s.svc.panelReq.PanelID != 4 {
		t.Errorf("Unexpected analyze-panel result %d %+v", w.Code, s.svc.panelReq)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/analyze-panel", strings.NewReader(`{"panel_id":4}`))
	req.Header.Set("Content-Type", "application/json")
	if w := s.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without dashboard_uid, got %d", w.Code)
	}
}

func TestGrafanaEndpoints(t *testing.T) {
	s := newTestServer(t, nil, 0)
	w := s.do(httptest.NewRequest(http.MethodGet, "/api/test-grafana", nil))
	var status models.GrafanaStatus
	json.Unmarshal(w.Body.Bytes(), &status)
	if w.Code != http.StatusOK || status.Connected || status.Authenticated {
		t.Errorf("Expected unconfigured status, got %d %+v", w.Code, status)
	}
	if w := s.do(httptest.NewRequest(http.MethodGet, "/api/dashboards", nil)); w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 without grafana, got %d", w.Code)
	}

	g := &fakeGrafana{connected: true, authorized: true, dashboards: []grafana.Dashboard{
		{UID: "node", Title: "Node Exporter"},
		{UID: "k8s", Title: "Kubernetes Cluster"},
	}}
	s = newTestServer(t, g, 0)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/test-grafana", nil))
	json.Unmarshal(w.Body.Bytes(), &status)
	if !status.Connected || !status.Authenticated || status.GrafanaURL != "http://grafana:3000" {
		t.Errorf("Unexpected status %+v", status)
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/dashboards?query=kube", nil))
	var dashboards []grafana.Dashboard
	if err := json.Unmarshal(w.Body.Bytes(), &dashboards); err != nil || len(dashboards) != 1 || dashboards[0].UID != "k8s" {
		t.Errorf("Unexpected dashboards %s", w.Body.String())
	}
}

func TestSettingsAndStats(t *testing.T) {
	s := newTestServer(t, nil, 0)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	var settings models.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil || settings.DefaultOutputFormat != "csv" {
		t.Errorf("Unexpected settings %s", w.Body.String())
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var stats map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Expected JSON stats, got %s", w.Body.String())
	}
	for _, key := range []string{"pipeline", "workers"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("Expected %s in stats", key)
		}
	}
}
