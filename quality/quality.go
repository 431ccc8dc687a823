// Package quality - Pixel-level quality signals for analyzed images.
package quality

import (
	"image"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"

	"github.com/docsight-ai/go-docscan/common"
)

// measureMaxSide caps the working resolution; larger frames are downscaled
// before measuring so cost stays bounded.
const measureMaxSide = 512

// laplacianBias shifts the signed Laplacian response into the unsigned
// 8-bit range so negative edges survive the convolution output.
const laplacianBias = 128.0

// Measure computes quality signals from decoded pixels.
//
// EdgeIntensity is the mean Sobel gradient magnitude over a grayscale copy,
// normalized to [0,1]. Clarity is a variance-of-Laplacian blur metric
// squashed into [0,1): blurry frames produce a flat Laplacian response and
// score near zero. ReadabilityScore blends the two. IsPartial starts false;
// the refinement engine owns it afterwards.
//
// The measurement is deterministic for identical input pixels.
func Measure(img *image.NRGBA) common.Quality {
	if img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return common.Quality{}
	}

	working := downscale(img)
	gray := effect.Grayscale(working)

	edge := edgeIntensity(gray)
	clarity := laplacianClarity(gray)

	readability := 0.6*clarity + 0.4*edge
	if readability > 1.0 {
		readability = 1.0
	}

	return common.Quality{
		EdgeIntensity:    edge,
		Clarity:          clarity,
		ReadabilityScore: readability,
		IsPartial:        false,
	}
}

func downscale(img *image.NRGBA) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w <= measureMaxSide && h <= measureMaxSide {
		return img
	}

	if w >= h {
		scaled := measureMaxSide * h / w
		if scaled < 1 {
			scaled = 1
		}
		return transform.Resize(img, measureMaxSide, scaled, transform.Linear)
	}
	scaled := measureMaxSide * w / h
	if scaled < 1 {
		scaled = 1
	}
	return transform.Resize(img, scaled, measureMaxSide, transform.Linear)
}

// edgeIntensity averages the Sobel gradient magnitude, normalized to [0,1].
func edgeIntensity(gray *image.RGBA) float64 {
	sobel := effect.Sobel(gray)
	bounds := sobel.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var sum float64
	for y := 0; y < h; y++ {
		row := sobel.Pix[y*sobel.Stride:]
		for x := 0; x < w; x++ {
			// Grayscale input keeps R==G==B; one channel is enough.
			sum += float64(row[x*4])
		}
	}
	return sum / float64(w*h) / 255.0
}

// laplacianClarity measures focus as the variance of the Laplacian
// response, squashed into [0,1).
func laplacianClarity(gray *image.RGBA) float64 {
	kernel := &convolution.Kernel{
		Matrix: []float64{
			0, 1, 0,
			1, -4, 1,
			0, 1, 0,
		},
		Width:  3,
		Height: 3,
	}
	lap := convolution.Convolve(gray, kernel, &convolution.Options{Bias: laplacianBias})

	bounds := lap.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	n := float64(w * h)
	var sum, sumSq float64
	for y := 0; y < h; y++ {
		row := lap.Pix[y*lap.Stride:]
		for x := 0; x < w; x++ {
			v := float64(row[x*4]) - laplacianBias
			sum += v
			sumSq += v * v
		}
	}

	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	// Squash: sharp documents land well past the knee, flat blurs stay
	// near zero.
	return variance / (variance + 1000.0)
}
