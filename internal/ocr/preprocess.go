package ocr

import (
	"image"
	"runtime"
	"slices"
	"sync"

	"go-dashboard-inspector/pkg/models"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"
)

const (
	// MinLegibleSide is the shorter-side size below which images are upscaled
	MinLegibleSide = 500
	// MedianKernel is the side of the square denoising window
	MedianKernel = 5
	// BlurThreshold is the Laplacian variance at or below which an image counts as blurry
	BlurThreshold = 100.0
)

// Preprocess normalises a raster for recognition: grayscale, Otsu binarisation,
// median denoise and cubic upscaling of small images.
func Preprocess(img image.Image) (*image.Gray, models.PreprocessDiagnostics) {
	gray := toGray(img)

	diag := models.PreprocessDiagnostics{
		ScaleFactor:       1,
		LaplacianVariance: laplacianVariance(gray),
		MeanIntensity:     meanIntensity(gray),
	}
	diag.Blurry = diag.LaplacianVariance <= BlurThreshold

	diag.OtsuThreshold = otsuThreshold(histogram(gray))
	binary := binarize(gray, diag.OtsuThreshold)
	denoised := medianFilter(binary, MedianKernel)

	out, factor := upscaleToLegible(denoised, MinLegibleSide)
	diag.ScaleFactor = factor
	return out, diag
}

// toGray always copies into a zero-origin image so Pix offsets are row*Stride+col
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

func histogram(gray *image.Gray) [256]float64 {
	var hist [256]float64
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride : (y-b.Min.Y)*gray.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist
}

// otsuThreshold picks the level that minimises the weighted sum of the two
// class variances. Pixels strictly above the level become foreground.
func otsuThreshold(hist [256]float64) uint8 {
	levels := make([]float64, 256)
	for i := range levels {
		levels[i] = float64(i)
	}

	best := -1.0
	var threshold uint8
	for t := 0; t < 255; t++ {
		w0 := floatsSum(hist[:t+1])
		w1 := floatsSum(hist[t+1:])
		if w0 == 0 || w1 == 0 {
			continue
		}
		_, v0 := stat.PopMeanVariance(levels[:t+1], hist[:t+1])
		_, v1 := stat.PopMeanVariance(levels[t+1:], hist[t+1:])
		within := w0*v0 + w1*v1
		if best < 0 || within < best {
			best = within
			threshold = uint8(t)
		}
	}
	return threshold
}

func floatsSum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func binarize(gray *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(gray.Bounds())
	for i, v := range gray.Pix {
		if v > t {
			out.Pix[i] = 255
		}
	}
	return out
}

// medianFilter applies a k×k median with replicated borders, in parallel strips
func medianFilter(src *image.Gray, k int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)
	if w == 0 || h == 0 {
		return dst
	}
	r := k / 2

	forEachStrip(h, func(startY, endY int) {
		window := make([]uint8, 0, k*k)
		for y := startY; y < endY; y++ {
			for x := 0; x < w; x++ {
				window = window[:0]
				for dy := -r; dy <= r; dy++ {
					yy := clamp(y+dy, 0, h-1)
					row := src.Pix[yy*src.Stride:]
					for dx := -r; dx <= r; dx++ {
						window = append(window, row[clamp(x+dx, 0, w-1)])
					}
				}
				slices.Sort(window)
				dst.Pix[y*dst.Stride+x] = window[len(window)/2]
			}
		}
	})
	return dst
}

// upscaleToLegible enlarges img by the smallest factor that brings its shorter
// side to minSide, using Catmull-Rom cubic interpolation.
func upscaleToLegible(img *image.Gray, minSide int) (*image.Gray, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	shorter := min(w, h)
	if shorter == 0 || shorter >= minSide {
		return img, 1
	}

	factor := float64(minSide) / float64(shorter)
	nw := max(int(float64(w)*factor+0.5), 1)
	nh := max(int(float64(h)*factor+0.5), 1)

	dst := image.NewGray(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, factor
}

// laplacianVariance measures sharpness with the 4-neighbour Laplacian kernel
func laplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	data := make([]float64, 0, (w-2)*(h-2))
	at := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := at(x, y-1) + at(x-1, y) + at(x+1, y) + at(x, y+1) - 4*at(x, y)
			data = append(data, lap)
		}
	}
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

func meanIntensity(gray *image.Gray) float64 {
	if len(gray.Pix) == 0 {
		return 0
	}
	hist := histogram(gray)
	levels := make([]float64, 256)
	for i := range levels {
		levels[i] = float64(i)
	}
	return stat.Mean(levels, hist[:])
}

// forEachStrip splits [0,height) into horizontal strips processed concurrently
func forEachStrip(height int, fn func(startY, endY int)) {
	workers := runtime.NumCPU()
	if height < workers {
		workers = height
	}
	if workers <= 0 {
		workers = 1
	}
	rowsPerWorker := (height + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		startY := i * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= endY {
			continue
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			fn(startY, endY)
		}(startY, endY)
	}
	wg.Wait()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
