package surface

import (
	"errors"
	"fmt"
	"image"
)

// ErrSizeMismatch is returned when a wrapped byte slice does not match the
// size its format requires.
var ErrSizeMismatch = errors.New("buffer length does not match format")

// Format describes the byte layout of a Buffer
type Format int

const (
	// Luma is a single 8-bit channel, one byte per pixel
	Luma Format = iota
	// YUYV is interleaved 4:2:2: Y0 U Y1 V per pixel pair
	YUYV
	// YUV422P is planar 4:2:2: full Y, then U and V at half width
	YUV422P
	// YUV420P is planar 4:2:0: full Y, then U and V at half width and half height
	YUV420P
)

// String returns the short name used in logs and file suffixes
func (f Format) String() string {
	switch f {
	case Luma:
		return "luma"
	case YUYV:
		return "yuyv"
	case YUV422P:
		return "yuv422p"
	case YUV420P:
		return "yuv420p"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// PlaneSizes returns the byte length of the Y, U and V planes for a w x h
// image. Single-plane formats report their whole size as Y.
func (f Format) PlaneSizes(w, h int) (y, u, v int) {
	px := w * h
	switch f {
	case Luma:
		return px, 0, 0
	case YUYV:
		return px * 2, 0, 0
	case YUV422P:
		return px, px / 2, px / 2
	case YUV420P:
		return px, px / 4, px / 4
	default:
		panic(fmt.Sprintf("surface: unknown format %d", int(f)))
	}
}

// Size returns the total byte length of a w x h image in this format
func (f Format) Size(w, h int) int {
	y, u, v := f.PlaneSizes(w, h)
	return y + u + v
}

// Buffer is a pixel buffer tagged with its dimensions and layout.
// All planes live in one backing slice, in Y, U, V order.
type Buffer struct {
	width  int
	height int
	format Format
	pix    []byte
}

// NewBlack allocates a zero-filled buffer
func NewBlack(f Format, w, h int) *Buffer {
	return &Buffer{
		width:  w,
		height: h,
		format: f,
		pix:    make([]byte, f.Size(w, h)),
	}
}

// Wrap borrows pix as the backing storage of a new buffer.
func Wrap(f Format, w, h int, pix []byte) (*Buffer, error) {
	want := f.Size(w, h)
	if len(pix) != want {
		return nil, fmt.Errorf("%w: %s %dx%d needs %d bytes, got %d",
			ErrSizeMismatch, f, w, h, want, len(pix))
	}
	return &Buffer{
		width:  w,
		height: h,
		format: f,
		pix:    pix,
	}, nil
}

// Width returns the width in pixels
func (b *Buffer) Width() int { return b.width }

// Height returns the height in pixels
func (b *Buffer) Height() int { return b.height }

// Format returns the buffer layout
func (b *Buffer) Format() Format { return b.format }

// Bytes returns the whole backing storage. Writes through the returned slice
// are visible to every plane view.
func (b *Buffer) Bytes() []byte { return b.pix }

// Planes splits the backing storage into Y, U and V views. The views are
// capped with full slice expressions, so appending to one never reaches into
// its neighbour. Luma and YUYV buffers return only y.
func (b *Buffer) Planes() (y, u, v []byte) {
	ny, nu, nv := b.format.PlaneSizes(b.width, b.height)
	y = b.pix[0:ny:ny]
	if nu == 0 {
		return y, nil, nil
	}
	u = b.pix[ny : ny+nu : ny+nu]
	v = b.pix[ny+nu : ny+nu+nv : ny+nu+nv]
	return y, u, v
}

// SameGeometry reports whether o has the same width, height and format
func (b *Buffer) SameGeometry(o *Buffer) bool {
	return b.width == o.width && b.height == o.height && b.format == o.format
}

// Luma copies the luma plane into a new single-channel buffer
func (b *Buffer) Luma() *Buffer {
	if b.format == YUYV {
		panic("surface: Luma on interleaved buffer")
	}
	y, _, _ := b.Planes()
	out := NewBlack(Luma, b.width, b.height)
	copy(out.pix, y)
	return out
}

// Clone returns a deep copy
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		width:  b.width,
		height: b.height,
		format: b.format,
		pix:    make([]byte, len(b.pix)),
	}
	copy(out.pix, b.pix)
	return out
}

// YCbCr exposes a planar buffer as an image.YCbCr sharing the same storage,
// which is the layout the standard image encoders consume.
func (b *Buffer) YCbCr() *image.YCbCr {
	var ratio image.YCbCrSubsampleRatio
	switch b.format {
	case YUV420P:
		ratio = image.YCbCrSubsampleRatio420
	case YUV422P:
		ratio = image.YCbCrSubsampleRatio422
	default:
		panic(fmt.Sprintf("surface: YCbCr on %s buffer", b.format))
	}
	y, u, v := b.Planes()
	return &image.YCbCr{
		Y:              y,
		Cb:             u,
		Cr:             v,
		YStride:        b.width,
		CStride:        b.width / 2,
		SubsampleRatio: ratio,
		Rect:           image.Rect(0, 0, b.width, b.height),
	}
}
