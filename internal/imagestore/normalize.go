// Package imagestore bounds the size and compression of captured photos before
// they are sent to the classifier and stored.
package imagestore

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/couchcryptid/cloudtracker/internal/domain"
)

const (
	// DefaultMaxDimension caps the longer side of a normalized photo.
	DefaultMaxDimension = 1024
	// DefaultQuality is the JPEG quality used for transport.
	DefaultQuality = 80
	// StorageQuality is the JPEG quality used for generated sample photos.
	StorageQuality = 90
)

// Normalizer downscales photos to fit MaxDimension and re-encodes them as JPEG.
// It implements domain.ImageNormalizer.
type Normalizer struct {
	maxDimension int
	quality      int
}

// NewNormalizer creates a Normalizer. Non-positive arguments select the defaults.
func NewNormalizer(maxDimension, quality int) *Normalizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Normalizer{maxDimension: maxDimension, quality: quality}
}

// Normalize decodes raw, scales it so neither side exceeds the maximum while
// keeping the aspect ratio, and encodes the result as JPEG. Every failure wraps
// domain.ErrImageProcessing.
func (n *Normalizer) Normalize(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrImageProcessing)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", domain.ErrImageProcessing, err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), n.maxDimension)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: %s image has no pixels", domain.ErrImageProcessing, format)
	}

	var out image.Image = src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		out = dst
	}

	return Encode(out, n.quality)
}

// Encode writes img as JPEG at the given quality.
func Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", domain.ErrImageProcessing, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: encoder produced no data", domain.ErrImageProcessing)
	}
	return buf.Bytes(), nil
}

// FitWithin returns the size of a w×h image scaled down so neither side exceeds
// maxDim. Images already within bounds are returned unchanged; scaled sides are
// never smaller than one pixel.
func FitWithin(w, h, maxDim int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	ratio := min(float64(maxDim)/float64(w), float64(maxDim)/float64(h))
	nw := max(1, int(float64(w)*ratio+0.5))
	nh := max(1, int(float64(h)*ratio+0.5))
	return min(nw, maxDim), min(nh, maxDim)
}

// Dimensions reads the pixel size of an encoded image without decoding it fully.
func Dimensions(b []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: decode config: %w", domain.ErrImageProcessing, err)
	}
	return cfg.Width, cfg.Height, nil
}
