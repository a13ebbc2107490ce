package encode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/deepteams/webp"
	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

// ErrInvalidParams is returned for encoder settings that can never succeed
var ErrInvalidParams = errors.New("invalid encode parameters")

// Encoder turns a planar 4:2:0 picture into compressed bytes
type Encoder interface {
	Encode(pic *surface.Buffer) ([]byte, error)

	// Name returns a human-readable name for logs
	Name() string
}

// WebP encodes lossy VP8 straight from the 4:2:0 planes
type WebP struct {
	Quality int
}

// Encode compresses pic as a lossy WebP image
func (w WebP) Encode(pic *surface.Buffer) ([]byte, error) {
	if w.Quality < 1 || w.Quality > 100 {
		return nil, fmt.Errorf("%w: webp quality %d", ErrInvalidParams, w.Quality)
	}
	img := pic.YCbCr()
	if img.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return nil, fmt.Errorf("%w: webp needs a 4:2:0 picture", ErrInvalidParams)
	}

	b := img.Bounds()
	buf := bytes.NewBuffer(make([]byte, 0, b.Dx()*b.Dy()/8))
	if err := webp.Encode(buf, img, &webp.EncoderOptions{Quality: float32(w.Quality)}); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}
	return buf.Bytes(), nil
}

func (w WebP) Name() string {
	return fmt.Sprintf("webp q%d", w.Quality)
}

// JPEG encodes straight from the YCbCr planes, no colour conversion
type JPEG struct {
	Quality int
}

// Encode compresses pic as a baseline JPEG
func (j JPEG) Encode(pic *surface.Buffer) ([]byte, error) {
	if j.Quality < 1 || j.Quality > 100 {
		return nil, fmt.Errorf("%w: jpeg quality %d", ErrInvalidParams, j.Quality)
	}
	return encodeJPEG(pic.YCbCr(), j.Quality)
}

func (j JPEG) Name() string {
	return fmt.Sprintf("jpeg q%d", j.Quality)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	buf := bytes.NewBuffer(make([]byte, 0, b.Dx()*b.Dy()/4))
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Filter picks the resampling kernel used by Scaled
type Filter string

const (
	FilterBilinear   Filter = "bilinear"
	FilterCatmullRom Filter = "catmullrom"
)

func (f Filter) scaler() (draw.Scaler, error) {
	switch f {
	case FilterBilinear, "":
		return draw.ApproxBiLinear, nil
	case FilterCatmullRom:
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("%w: unknown scale filter %q", ErrInvalidParams, f)
	}
}

// Scaled resizes a picture before JPEG encoding
type Scaled struct {
	Width   int
	Height  int
	Filter  Filter
	Quality int
}

// Encode scales pic to Width x Height and compresses it
func (s Scaled) Encode(pic *surface.Buffer) ([]byte, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: scaled size %dx%d", ErrInvalidParams, s.Width, s.Height)
	}
	if s.Quality < 1 || s.Quality > 100 {
		return nil, fmt.Errorf("%w: jpeg quality %d", ErrInvalidParams, s.Quality)
	}
	scaler, err := s.Filter.scaler()
	if err != nil {
		return nil, err
	}

	src := pic.YCbCr()
	dst := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return encodeJPEG(dst, s.Quality)
}

func (s Scaled) Name() string {
	return fmt.Sprintf("jpeg %dx%d %s q%d", s.Width, s.Height, s.Filter, s.Quality)
}
