package ocr

import (
	"context"
	"fmt"

	apperrors "go-dashboard-inspector/internal/errors"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer turns an encoded, preprocessed bitmap into text
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// TesseractOptions configures the tesseract engine behind gosseract
type TesseractOptions struct {
	Language       string
	TessdataPrefix string
}

type tesseractRecognizer struct {
	opts TesseractOptions
}

// NewTesseractRecognizer returns a Recognizer backed by libtesseract.
// A fresh client is created per call since gosseract clients are not safe
// for concurrent use.
func NewTesseractRecognizer(opts TesseractOptions) Recognizer {
	if opts.Language == "" {
		opts.Language = "eng"
	}
	return &tesseractRecognizer{opts: opts}
}

func (r *tesseractRecognizer) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if r.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.opts.TessdataPrefix); err != nil {
			return "", apperrors.NewUpstreamUnavailableError("invalid tessdata prefix", err)
		}
	}
	if err := client.SetLanguage(r.opts.Language); err != nil {
		return "", apperrors.NewUpstreamUnavailableError(fmt.Sprintf("unsupported OCR language %q", r.opts.Language), err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", apperrors.NewUpstreamUnavailableError("failed to set page segmentation mode", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", apperrors.NewUnreadableInputError("recognition engine rejected image", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", apperrors.NewUpstreamUnavailableError("text recognition failed", err)
	}
	return text, nil
}
