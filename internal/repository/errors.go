package repository

import "errors"

var (
	// ErrNotAnImage indicates fetched bytes that no registered decoder recognises
	ErrNotAnImage = errors.New("content is not a supported image")

	// ErrRendererUnavailable indicates no Grafana client is configured
	ErrRendererUnavailable = errors.New("grafana renderer unavailable")
)
