package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go-dashboard-inspector/pkg/models"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int
	last  []byte
}

func (f *fakeRecognizer) Recognize(ctx context.Context, data []byte) (string, error) {
	f.calls++
	f.last = data
	return f.text, f.err
}

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{240, 240, 240, 255}
			if x%10 < 3 {
				c = color.RGBA{20, 20, 20, 255}
			}
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "dashboard.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessImage_CPUSample(t *testing.T) {
	path := writeTestPNG(t, 120, 80)
	rec := &fakeRecognizer{text: "CPU Usage\n45.2%\nSTATUS: OK\n"}
	ex := NewExtractor(rec)

	record := ex.ProcessImage(context.Background(), path)
	if record == nil {
		t.Fatal("Expected record, got nil")
	}
	if record.Kind != models.SourcePattern {
		t.Errorf("Expected pattern record, got %s", record.Kind)
	}
	if rec.calls != 1 {
		t.Errorf("Expected one recognition call, got %d", rec.calls)
	}

	src := record.Pattern
	if src.RawText != "CPU Usage\n45.2%\nSTATUS: OK" {
		t.Errorf("Expected trimmed text, got %q", src.RawText)
	}
	if got := src.Metrics.Get(models.CategoryPercentages); len(got) != 1 || got[0].Value != "45.2" || got[0].Unit != "%" {
		t.Errorf("Expected percentage 45.2 %%, got %v", got)
	}
	if got := src.Metrics.Get(models.CategoryStatusIndicators); len(got) != 1 || got[0].Value != "OK" {
		t.Errorf("Expected status indicators [OK], got %v", got)
	}
	if src.Metrics.DashboardTitle != "CPU Usage" {
		t.Errorf("Expected title CPU Usage, got %q", src.Metrics.DashboardTitle)
	}
	if record.ImageInfo.Width != 120 || record.ImageInfo.Height != 80 {
		t.Errorf("Expected 120x80 metadata, got %dx%d", record.ImageInfo.Width, record.ImageInfo.Height)
	}
	if src.Preprocess == nil {
		t.Fatal("Expected preprocess diagnostics")
	}
	if src.Preprocess.ScaleFactor <= 1 {
		t.Errorf("Expected small image to be upscaled, got factor %v", src.Preprocess.ScaleFactor)
	}
	if src.Accuracy != nil {
		t.Error("Expected no accuracy without an expected transcript")
	}

	decoded, err := png.Decode(bytes.NewReader(rec.last))
	if err != nil {
		t.Fatalf("Expected recognizer to receive a PNG, got %v", err)
	}
	if min(decoded.Bounds().Dx(), decoded.Bounds().Dy()) < MinLegibleSide {
		t.Errorf("Expected shorter side >= %d, got %v", MinLegibleSide, decoded.Bounds())
	}
}

func TestProcessImage_InvalidUTF8Text(t *testing.T) {
	path := writeTestPNG(t, 120, 80)
	record := NewExtractor(&fakeRecognizer{text: "bad\xffutf8"}).ProcessImage(context.Background(), path)

	if record.Pattern.RawText != "bad\uFFFDutf8" {
		t.Errorf("Expected invalid bytes replaced, got %q", record.Pattern.RawText)
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Expected no marshal error, got %v", err)
	}
	var decoded models.AnalysisRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Expected no unmarshal error, got %v", err)
	}
	if decoded.Pattern.RawText != record.Pattern.RawText {
		t.Errorf("Expected raw text to survive JSON, got %q", decoded.Pattern.RawText)
	}
}

func TestProcessImage_UnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &fakeRecognizer{text: "should not be used"}

	record := NewExtractor(rec).ProcessImage(context.Background(), path)
	if record == nil {
		t.Fatal("Expected a record even for unreadable input")
	}
	if rec.calls != 0 {
		t.Errorf("Expected recognizer not to be called, got %d calls", rec.calls)
	}
	if record.Pattern.RawText != "" {
		t.Errorf("Expected empty text, got %q", record.Pattern.RawText)
	}
	if !record.Pattern.Metrics.IsEmpty() {
		t.Error("Expected empty metric bag")
	}
	if record.ImageInfo.Filename != "broken.png" {
		t.Errorf("Expected filename broken.png, got %q", record.ImageInfo.Filename)
	}
}

func TestExtractText_EngineFailure(t *testing.T) {
	path := writeTestPNG(t, 600, 600)
	rec := &fakeRecognizer{err: errors.New("tesseract missing")}

	if got := NewExtractor(rec).ExtractText(context.Background(), path); got != "" {
		t.Errorf("Expected empty text on engine failure, got %q", got)
	}
}

func TestProcessImageWithExpected(t *testing.T) {
	path := writeTestPNG(t, 600, 600)
	rec := &fakeRecognizer{text: "CPU Usage 45.2%"}

	record := NewExtractor(rec).ProcessImageWithExpected(context.Background(), path, "CPU Usage 45.2%")
	if record.Pattern.Accuracy == nil {
		t.Fatal("Expected accuracy to be scored")
	}
	if record.Pattern.Accuracy.WER != 0 || record.Pattern.Accuracy.CER != 0 {
		t.Errorf("Expected perfect scores, got %+v", record.Pattern.Accuracy)
	}
}

func TestScoreAccuracy(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		wantWER  float64
		wantCER  float64
	}{
		{"identical", "memory 512 MB", "memory 512 MB", 0, 0},
		{"whitespace only", "memory  512\nMB", "memory 512 MB", 0, 0},
		{"one word substituted", "cpu load high", "cpu load low", 1.0 / 3.0, 4.0 / 13.0},
		{"both empty", "", "", 0, 0},
		{"empty expectation", "", "noise", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := ScoreAccuracy(tt.expected, tt.actual)
			if math.Abs(acc.WER-tt.wantWER) > 1e-9 {
				t.Errorf("Expected WER %v, got %v", tt.wantWER, acc.WER)
			}
			if math.Abs(acc.CER-tt.wantCER) > 1e-9 {
				t.Errorf("Expected CER %v, got %v", tt.wantCER, acc.CER)
			}
			if acc.ExpectedText != tt.expected {
				t.Errorf("Expected transcript to be echoed, got %q", acc.ExpectedText)
			}
		})
	}
}

func TestOtsuThreshold_Bimodal(t *testing.T) {
	var hist [256]float64
	hist[30] = 500
	hist[220] = 300

	got := otsuThreshold(hist)
	if got < 30 || got >= 220 {
		t.Errorf("Expected threshold separating 30 and 220, got %d", got)
	}
}

func TestBinarize(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 1))
	gray.Pix = []uint8{10, 100, 101}

	out := binarize(gray, 100)
	want := []uint8{0, 0, 255}
	for i := range want {
		if out.Pix[i] != want[i] {
			t.Errorf("Pixel %d: expected %d, got %d", i, want[i], out.Pix[i])
		}
	}
}

func TestMedianFilter_RemovesSpeckle(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 9, 9))
	gray.SetGray(4, 4, color.Gray{Y: 255})
	gray.SetGray(0, 0, color.Gray{Y: 255})

	out := medianFilter(gray, MedianKernel)
	for i, v := range out.Pix {
		if v != 0 {
			t.Fatalf("Expected isolated specks removed, pixel %d is %d", i, v)
		}
	}
}

func TestMedianFilter_KeepsSolidRegions(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			gray.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	out := medianFilter(gray, MedianKernel)
	if out.GrayAt(9, 5).Y != 255 {
		t.Error("Expected right half to stay white")
	}
	if out.GrayAt(0, 5).Y != 0 {
		t.Error("Expected left half to stay black")
	}
}

func TestUpscaleToLegible(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
		wantFactor   float64
	}{
		{"already legible", 800, 600, 800, 600, 1},
		{"short height", 1000, 250, 2000, 500, 2},
		{"short width", 100, 800, 500, 4000, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewGray(image.Rect(0, 0, tt.w, tt.h))
			out, factor := upscaleToLegible(img, MinLegibleSide)
			if factor != tt.wantFactor {
				t.Errorf("Expected factor %v, got %v", tt.wantFactor, factor)
			}
			b := out.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}
		})
	}
}

func TestPreprocess_Diagnostics(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 600, 600))
	out, diag := Preprocess(img)

	if out.Bounds().Dx() != 600 {
		t.Errorf("Expected no upscale, got width %d", out.Bounds().Dx())
	}
	if diag.ScaleFactor != 1 {
		t.Errorf("Expected scale factor 1, got %v", diag.ScaleFactor)
	}
	if !diag.Blurry {
		t.Error("Expected flat image to be flagged blurry")
	}
	if diag.MeanIntensity != 0 {
		t.Errorf("Expected mean intensity 0, got %v", diag.MeanIntensity)
	}
}
