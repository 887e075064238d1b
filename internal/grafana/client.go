// Package grafana talks to the Grafana HTTP API: health, credentials,
// dashboard search and panel rendering.
package grafana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go-dashboard-inspector/internal/config"
	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/internal/storage"
	"go-dashboard-inspector/pkg/validation"

	"github.com/sirupsen/logrus"
)

// ErrNoCredentials is returned when neither an API key nor a username/password pair is configured
var ErrNoCredentials = errors.New("either API key or username/password must be provided")

// Dashboard is one hit of /api/search?type=dash-db
type Dashboard struct {
	ID          int64    `json:"id"`
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	URI         string   `json:"uri,omitempty"`
	URL         string   `json:"url"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`
	IsStarred   bool     `json:"isStarred"`
	FolderUID   string   `json:"folderUid,omitempty"`
	FolderTitle string   `json:"folderTitle,omitempty"`
}

// RenderOptions sizes a panel render
type RenderOptions struct {
	PanelID int
	Width   int
	Height  int
}

// Client is a read-only Grafana API client
type Client struct {
	baseURL string
	header  http.Header
	fetcher storage.Fetcher
}

// NewClient validates the configured URL and credentials. An API key wins
// over basic auth when both are set.
func NewClient(cfg config.GrafanaConfig, fetcher storage.Fetcher) (*Client, error) {
	base, err := validation.NewURLValidator().NormalizeBaseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	switch {
	case cfg.APIKey != "":
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	case cfg.Username != "" && cfg.Password != "":
		creds := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		header.Set("Authorization", "Basic "+creds)
	default:
		return nil, apperrors.NewValidationError("grafana credentials missing", ErrNoCredentials)
	}

	return &Client{baseURL: base, header: header, fetcher: fetcher}, nil
}

// BaseURL returns the normalized Grafana root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TestConnection reports whether /api/health answers 200
func (c *Client) TestConnection(ctx context.Context) bool {
	if _, err := c.get(ctx, "/api/health", nil); err != nil {
		logger.WithError(err).WithField("grafana_url", c.baseURL).Warn("Grafana connection test failed")
		return false
	}
	return true
}

// ValidateCredentials reports whether /api/user accepts the configured credentials
func (c *Client) ValidateCredentials(ctx context.Context) bool {
	if _, err := c.get(ctx, "/api/user", nil); err != nil {
		logger.WithError(err).WithField("grafana_url", c.baseURL).Warn("Grafana credential validation failed")
		return false
	}
	return true
}

// ListDashboards returns every dashboard visible to the configured user
func (c *Client) ListDashboards(ctx context.Context) ([]Dashboard, error) {
	body, err := c.get(ctx, "/api/search", url.Values{"type": {"dash-db"}})
	if err != nil {
		return nil, err
	}
	dashboards := []Dashboard{}
	if err := json.Unmarshal(body, &dashboards); err != nil {
		return nil, apperrors.NewMalformedResponseError("grafana search response", err)
	}
	return dashboards, nil
}

// GetDashboard returns the raw dashboard model for uid
func (c *Client) GetDashboard(ctx context.Context, uid string) (map[string]any, error) {
	if uid == "" {
		return nil, apperrors.NewValidationError("dashboard uid is required", nil)
	}
	body, err := c.get(ctx, "/api/dashboards/uid/"+url.PathEscape(uid), nil)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperrors.NewMalformedResponseError("grafana dashboard response", err)
	}
	return out, nil
}

// RenderPanel returns a PNG of one dashboard (or one panel when PanelID is
// set) from the image renderer at /render/d-solo/{uid}
func (c *Client) RenderPanel(ctx context.Context, uid string, opts RenderOptions) ([]byte, error) {
	if uid == "" {
		return nil, apperrors.NewValidationError("dashboard uid is required", nil)
	}
	if opts.Width <= 0 {
		opts.Width = 1000
	}
	if opts.Height <= 0 {
		opts.Height = 500
	}

	q := url.Values{
		"width":  {strconv.Itoa(opts.Width)},
		"height": {strconv.Itoa(opts.Height)},
		"tz":     {"UTC"},
	}
	if opts.PanelID > 0 {
		q.Set("panelId", strconv.Itoa(opts.PanelID))
	}

	body, err := c.get(ctx, "/render/d-solo/"+url.PathEscape(uid), q)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"uid":      uid,
		"panel_id": opts.PanelID,
		"bytes":    len(body),
	}).Info("Rendered Grafana panel")
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	fetched, err := c.fetcher.Fetch(ctx, target, c.header)
	if err != nil {
		var statusErr *storage.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("grafana %s not found", path), err)
		}
		return nil, apperrors.NewUpstreamUnavailableError("grafana request failed", err)
	}
	return fetched.Body, nil
}
