package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-dashboard-inspector/internal/logger"

	"github.com/sirupsen/logrus"
)

const (
	defaultAttempts    = 3
	defaultMaxBodySize = 32 << 20
)

// Fetcher retrieves a remote resource as bytes
type Fetcher interface {
	Fetch(ctx context.Context, url string, header http.Header) (*Fetched, error)
}

// Fetched is a successful response body with its declared content type
type Fetched struct {
	Body        []byte
	ContentType string
}

// StatusError is a non-200 answer from the remote server
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	switch {
	case e.StatusCode >= 500:
		return fmt.Sprintf("server error: status code %d", e.StatusCode)
	case e.StatusCode >= 400:
		return fmt.Sprintf("client error: status code %d", e.StatusCode)
	default:
		return fmt.Sprintf("unexpected status code %d", e.StatusCode)
	}
}

// Retryable reports whether another attempt may succeed
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// HTTPFetcher performs GETs with a bounded retry on transient failures.
// Network errors and 5xx are retried with linear backoff; 4xx stops immediately.
type HTTPFetcher struct {
	client      *http.Client
	attempts    int
	backoff     time.Duration
	maxBodySize int64
	userAgent   string
}

// FetcherOption customises an HTTPFetcher
type FetcherOption func(*HTTPFetcher)

// WithBackoff sets the base delay between attempts (attempt n waits n*d)
func WithBackoff(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) { f.backoff = d }
}

// WithAttempts sets the number of tries per request
func WithAttempts(n int) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithHTTPClient replaces the underlying client
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// NewHTTPFetcher creates a fetcher with pooled connections and a request timeout
func NewHTTPFetcher(timeout time.Duration, opts ...FetcherOption) *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	f := &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		attempts:    defaultAttempts,
		backoff:     time.Second,
		maxBodySize: defaultMaxBodySize,
		userAgent:   "Go-Dashboard-Inspector/1.0",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs url, retrying transient failures. The error of the final
// attempt is returned when every attempt fails.
func (h *HTTPFetcher) Fetch(ctx context.Context, url string, header http.Header) (*Fetched, error) {
	var lastErr error

	for attempt := 0; attempt < h.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		fetched, retry, err := h.do(ctx, url, header)
		if err == nil {
			return fetched, nil
		}
		lastErr = err

		logger.WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt + 1,
			"retry":   retry,
		}).WithError(err).Warn("Fetch attempt failed")

		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", url, h.attempts, lastErr)
}

func (h *HTTPFetcher) do(ctx context.Context, url string, header http.Header) (*Fetched, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		return nil, statusErr.Retryable(), statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize+1))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > h.maxBodySize {
		return nil, false, fmt.Errorf("response exceeds %d bytes", h.maxBodySize)
	}
	return &Fetched{Body: body, ContentType: resp.Header.Get("Content-Type")}, false, nil
}
