// Package codec - Image decoding and resizing collaborator.
//
// The analysis core never touches encoded bytes itself; it consumes decoded
// interleaved pixels through the Codec interface. Std is the default
// implementation used by the analyzer and the CLI.
package codec

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	// Register decoders for the formats document photos arrive in beyond
	// the stdlib JPEG/PNG/GIF set.
	_ "github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
)

// Info is basic metadata about a decoded image.
type Info struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Format string `json:"format" yaml:"format"`
}

// Resizer resizes a decoded image to exact target dimensions.
type Resizer interface {
	Resize(img *image.NRGBA, width, height int) *image.NRGBA
}

// Codec decodes encoded image bytes into interleaved 8-bit RGBA pixels and
// resizes decoded images. Implementations handle color-space and alpha
// normalization so downstream stages only ever see NRGBA.
type Codec interface {
	Resizer
	Decode(data []byte) (*image.NRGBA, Info, error)
}

// Std is the default codec: stdlib/x-image/webp decoders with EXIF
// auto-orientation, Lanczos3 resampling for resizes.
type Std struct{}

// Decode decodes image bytes into normalized NRGBA pixels.
//
// Arguments:
//   - data: The raw encoded image bytes.
//
// Returns:
//   - *image.NRGBA: The decoded image with interleaved 8-bit channels.
//   - Info: Width, height and container format of the decoded image.
//   - error: A wrapped decode error when the bytes are not a known format.
func (Std) Decode(data []byte) (*image.NRGBA, Info, error) {
	if len(data) == 0 {
		return nil, Info{}, errors.New("empty image data")
	}

	// Sniff the container format first; imaging.Decode does not report it.
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, Info{}, errors.Wrap(err, "detecting image format")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, Info{}, errors.Wrapf(err, "decoding %s image", format)
	}

	// Clone flattens any decoded representation (YCbCr, paletted, gray)
	// into interleaved NRGBA.
	nrgba := imaging.Clone(img)

	// EXIF orientation may have swapped the axes relative to DecodeConfig,
	// so dimensions come from the decoded pixels.
	info := Info{
		Width:  nrgba.Bounds().Dx(),
		Height: nrgba.Bounds().Dy(),
		Format: format,
	}

	return nrgba, info, nil
}

// Resize scales an image to exactly width×height with Lanczos3 resampling.
// Aspect-ratio handling is the caller's concern; this fills the target
// dimensions exactly.
func (Std) Resize(img *image.NRGBA, width, height int) *image.NRGBA {
	if width <= 0 || height <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	return imaging.Clone(resized)
}
