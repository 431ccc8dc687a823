// Package preprocess - Tensor preparation for the document detector.
//
// Turns a decoded pixel buffer into the padded, normalized, planar float32
// tensor the detector consumes, and records the letterbox geometry needed to
// map detector output back into original image coordinates.
package preprocess

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/docsight-ai/go-docscan/codec"
	"github.com/docsight-ai/go-docscan/images"
)

// PadValue is the constant gray used to fill the letterbox borders.
const PadValue = 114

// Letterbox records the geometry of one tensor preparation: how the source
// image was scaled and where it sits on the square model canvas. It is the
// key that unlocks coordinate remapping after inference.
type Letterbox struct {
	// Scale is the uniform factor applied to the source image.
	Scale float32
	// PadX, PadY are the offsets of the resized image on the canvas.
	PadX, PadY int
	// Size is the square canvas side length in pixels.
	Size int
	// SourceWidth, SourceHeight are the original image dimensions.
	SourceWidth, SourceHeight int
}

// Project maps a rectangle from original image space into padded model
// space.
func (lb Letterbox) Project(r images.Rect) images.Rect {
	return images.Rect{
		X1: int(math32.Round(float32(r.X1)*lb.Scale)) + lb.PadX,
		Y1: int(math32.Round(float32(r.Y1)*lb.Scale)) + lb.PadY,
		X2: int(math32.Round(float32(r.X2)*lb.Scale)) + lb.PadX,
		Y2: int(math32.Round(float32(r.Y2)*lb.Scale)) + lb.PadY,
	}
}

// Unproject maps corner coordinates from padded model space back into
// original image space: subtract the pad, divide by the scale, clamp into
// the source bounds, round to integer pixels.
func (lb Letterbox) Unproject(x1, y1, x2, y2 float32) images.Rect {
	return images.Rect{
		X1: lb.unprojectX(x1),
		Y1: lb.unprojectY(y1),
		X2: lb.unprojectX(x2),
		Y2: lb.unprojectY(y2),
	}
}

func (lb Letterbox) unprojectX(x float32) int {
	v := (x - float32(lb.PadX)) / lb.Scale
	v = math32.Max(0, math32.Min(v, float32(lb.SourceWidth)))
	return int(math32.Round(v))
}

func (lb Letterbox) unprojectY(y float32) int {
	v := (y - float32(lb.PadY)) / lb.Scale
	v = math32.Max(0, math32.Min(v, float32(lb.SourceHeight)))
	return int(math32.Round(v))
}

// Prepare letterboxes a decoded image onto a size×size canvas and converts
// it to a normalized planar tensor.
//
// The source is resized preserving aspect ratio with scale =
// min(size/width, size/height), centered on a canvas filled with PadValue,
// then converted from interleaved pixels to CHW planar float32 in [0,1].
//
// Arguments:
//   - src: The decoded source image.
//   - size: The square model input side length.
//   - rz: The codec collaborator performing the exact-dimension resize.
//
// Returns:
//   - *tensor.Dense: Planar float32 tensor of shape [1,3,size,size].
//   - Letterbox: The geometry needed to unproject detector output.
//   - error: When the source or target dimensions are degenerate.
func Prepare(src *image.NRGBA, size int, rz codec.Resizer) (*tensor.Dense, Letterbox, error) {
	if size <= 0 {
		return nil, Letterbox{}, errors.Errorf("invalid model input size %d", size)
	}

	bounds := src.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()
	if srcWidth <= 0 || srcHeight <= 0 {
		return nil, Letterbox{}, errors.Errorf("invalid image dimensions: %dx%d", srcWidth, srcHeight)
	}

	// Scale preserving aspect ratio so the longer side exactly fills the
	// canvas.
	scale := math32.Min(
		float32(size)/float32(srcWidth),
		float32(size)/float32(srcHeight),
	)
	newWidth := min(int(float32(srcWidth)*scale), size)
	newHeight := min(int(float32(srcHeight)*scale), size)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	resized := rz.Resize(src, newWidth, newHeight)

	padX := (size - newWidth) / 2
	padY := (size - newHeight) / 2

	canvas := image.NewNRGBA(image.Rect(0, 0, size, size))
	pad := color.NRGBA{R: PadValue, G: PadValue, B: PadValue, A: 255}
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: pad}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(padX, padY, padX+newWidth, padY+newHeight),
		resized, image.Point{}, draw.Src)

	// Interleaved NRGBA to planar CHW, normalized to [0,1].
	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < size; x++ {
			px := row[x*4:]
			idx := y*size + x
			data[idx] = float32(px[0]) / 255.0
			data[plane+idx] = float32(px[1]) / 255.0
			data[2*plane+idx] = float32(px[2]) / 255.0
		}
	}

	dense := tensor.New(
		tensor.WithShape(1, 3, size, size),
		tensor.WithBacking(data),
	)

	lb := Letterbox{
		Scale:        scale,
		PadX:         padX,
		PadY:         padY,
		Size:         size,
		SourceWidth:  srcWidth,
		SourceHeight: srcHeight,
	}
	return dense, lb, nil
}
