// Package imaging decodes uploaded dashboard screenshots and describes them.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"go-dashboard-inspector/pkg/models"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// AllowedExtensions lists the upload extensions the decoders above can read
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "tiff"}

// IsAllowed reports whether filename has a supported image extension
func IsAllowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Decode reads and decodes the image at path
func Decode(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	return img, format, nil
}

// Inspect collects metadata without decoding pixel data. The filename is
// always filled in; other fields stay zero when the file cannot be read.
func Inspect(path string) models.ImageMetadata {
	meta := models.ImageMetadata{
		Filename: filepath.Base(path),
		Path:     path,
	}

	if st, err := os.Stat(path); err == nil {
		meta.FileSize = st.Size()
	}

	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return meta
	}
	meta.Width = cfg.Width
	meta.Height = cfg.Height
	meta.Format = strings.ToUpper(format)
	meta.ColorMode = ColorModeName(cfg.ColorModel)
	return meta
}

// ColorModeName maps a Go color model onto the short mode names used in reports
func ColorModeName(m color.Model) string {
	switch m {
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.RGBAModel, color.NRGBAModel:
		return "RGBA"
	case color.RGBA64Model, color.NRGBA64Model:
		return "RGBA;16"
	case color.YCbCrModel:
		return "YCbCr"
	case color.CMYKModel:
		return "CMYK"
	case color.AlphaModel, color.Alpha16Model:
		return "A"
	}
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	return "unknown"
}

// FitWithin shrinks img so its longest side is at most maxSide, keeping the
// aspect ratio. Smaller images are returned unchanged.
func FitWithin(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}

	nw, nh := maxSide, maxSide
	if w >= h {
		nh = max((h*maxSide+w/2)/w, 1)
	} else {
		nw = max((w*maxSide+h/2)/h, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeJPEG flattens any transparency onto white and encodes at quality
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
