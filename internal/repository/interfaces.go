package repository

import (
	"context"
	"io"

	"go-dashboard-inspector/internal/grafana"
)

// ImageRepository materialises screenshots as local files the extractors can read
type ImageRepository interface {
	// SaveUpload stores an uploaded screenshot
	SaveUpload(filename string, r io.Reader) (string, error)

	// FetchRemote downloads a screenshot from an http(s) URL
	FetchRemote(ctx context.Context, imageURL string) (string, error)

	// RenderPanel asks Grafana to render a dashboard panel
	RenderPanel(ctx context.Context, uid string, opts grafana.RenderOptions) (string, error)

	// Release removes a materialised file
	Release(path string)
}

// PanelRenderer is the part of the Grafana client the repository needs
type PanelRenderer interface {
	RenderPanel(ctx context.Context, uid string, opts grafana.RenderOptions) ([]byte, error)
}
