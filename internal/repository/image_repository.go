package repository

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/url"
	"path"
	"strings"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/grafana"
	"go-dashboard-inspector/internal/imaging"
	"go-dashboard-inspector/internal/storage"
	"go-dashboard-inspector/pkg/validation"
)

// FileImageRepository stores every screenshot in the upload folder, whatever its origin
type FileImageRepository struct {
	store     *storage.UploadStore
	fetcher   storage.Fetcher
	renderer  PanelRenderer
	validator *validation.URLValidator
}

// NewFileImageRepository creates a repository; renderer may be nil when
// Grafana is not configured
func NewFileImageRepository(store *storage.UploadStore, fetcher storage.Fetcher, renderer PanelRenderer) *FileImageRepository {
	return &FileImageRepository{
		store:     store,
		fetcher:   fetcher,
		renderer:  renderer,
		validator: validation.NewURLValidator(),
	}
}

func (r *FileImageRepository) SaveUpload(filename string, src io.Reader) (string, error) {
	return r.store.Save(filename, src)
}

func (r *FileImageRepository) FetchRemote(ctx context.Context, imageURL string) (string, error) {
	parsed, err := r.validator.ValidateURL(imageURL)
	if err != nil {
		return "", err
	}

	fetched, err := r.fetcher.Fetch(ctx, parsed.String(), nil)
	if err != nil {
		return "", apperrors.NewUpstreamUnavailableError("failed to fetch image", err)
	}

	format, err := sniffFormat(fetched.Body)
	if err != nil {
		return "", apperrors.NewUnreadableInputError("fetched content is not an image", err)
	}
	return r.store.Save(remoteName(parsed, format), bytes.NewReader(fetched.Body))
}

func (r *FileImageRepository) RenderPanel(ctx context.Context, uid string, opts grafana.RenderOptions) (string, error) {
	if r.renderer == nil {
		return "", apperrors.NewUpstreamUnavailableError("grafana is not configured", ErrRendererUnavailable)
	}
	png, err := r.renderer.RenderPanel(ctx, uid, opts)
	if err != nil {
		return "", err
	}
	if _, err := sniffFormat(png); err != nil {
		return "", apperrors.NewMalformedResponseError("grafana render did not return an image", err)
	}

	name := fmt.Sprintf("%s.png", uid)
	if opts.PanelID > 0 {
		name = fmt.Sprintf("%s_panel-%d.png", uid, opts.PanelID)
	}
	return r.store.Save(name, bytes.NewReader(png))
}

func (r *FileImageRepository) Release(path string) {
	r.store.Remove(path)
}

func sniffFormat(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return format, nil
}

// remoteName keeps the URL's base name when it already has an image
// extension, otherwise names the file after the sniffed format
func remoteName(u *url.URL, format string) string {
	base := path.Base(u.Path)
	if base != "/" && base != "." && imaging.IsAllowed(base) {
		return base
	}
	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	host := strings.ReplaceAll(u.Hostname(), ".", "_")
	return fmt.Sprintf("%s_screenshot.%s", host, ext)
}
