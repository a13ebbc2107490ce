package convert

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

// ErrTruncated means the interleaved input did not demultiplex into the
// planar output exactly, which only happens on malformed or cut-off frames.
var ErrTruncated = errors.New("interleaved input truncated or malformed")

// YUYVToYUV422P demultiplexes an interleaved Y,U,Y,V stream into the three
// planes of dst.
func YUYVToYUV422P(dst, src *surface.Buffer) error {
	mustMatch(dst, surface.YUV422P, src, surface.YUYV)

	in := src.Bytes()
	yp, up, vp := dst.Planes()

	// Every step advances both cursors, but only copies when both are in
	// range. The count of copied bytes is what we verify at the end.
	var si, yi, ui, vi, copied int
	step := func(plane []byte, pi *int) bool {
		ok := si < len(in) && *pi < len(plane)
		if ok {
			plane[*pi] = in[si]
			copied++
		}
		si++
		*pi++
		return ok
	}

	for {
		step(yp, &yi)
		step(up, &ui)
		step(yp, &yi)
		if !step(vp, &vi) {
			break
		}
	}

	if copied != len(in) {
		return fmt.Errorf("%w: consumed %d of %d subpixels", ErrTruncated, copied, len(in))
	}
	return nil
}

// YUV422PToYUV420P copies luma and halves each chroma plane vertically by
// averaging row pairs. dst and src must be distinct buffers.
func YUV422PToYUV420P(dst, src *surface.Buffer) {
	mustMatch(dst, surface.YUV420P, src, surface.YUV422P)
	if src.Width()%2 != 0 || src.Height()%2 != 0 {
		panic(fmt.Sprintf("convert: 4:2:0 needs even dimensions, got %dx%d", src.Width(), src.Height()))
	}

	iy, iu, iv := src.Planes()
	oy, ou, ov := dst.Planes()

	copy(oy, iy)
	halveRows(ou, iu, src.Width()/2)
	halveRows(ov, iv, src.Width()/2)
}

// halveRows writes out[r] = (in[2r] + in[2r+1]) / 2 for a plane of the given
// row width.
func halveRows(out, in []byte, width int) {
	rows := len(out) / width
	for r := 0; r < rows; r++ {
		top := in[2*r*width : (2*r+1)*width]
		bottom := in[(2*r+1)*width : (2*r+2)*width]
		row := out[r*width : (r+1)*width]
		for x := range row {
			row[x] = byte((uint16(top[x]) + uint16(bottom[x])) >> 1)
		}
	}
}

// Downsample allocates a 4:2:0 buffer from a planar 4:2:2 one
func Downsample(src *surface.Buffer) *surface.Buffer {
	dst := surface.NewBlack(surface.YUV420P, src.Width(), src.Height())
	YUV422PToYUV420P(dst, src)
	return dst
}

// YUYVToYUV420P converts interleaved input to planar 4:2:0 through a planar
// 4:2:2 intermediate.
func YUYVToYUV420P(src *surface.Buffer) (*surface.Buffer, error) {
	mid := surface.NewBlack(surface.YUV422P, src.Width(), src.Height())
	if err := YUYVToYUV422P(mid, src); err != nil {
		return nil, err
	}
	return Downsample(mid), nil
}

func mustMatch(dst *surface.Buffer, dstFormat surface.Format, src *surface.Buffer, srcFormat surface.Format) {
	if src.Format() != srcFormat || dst.Format() != dstFormat {
		panic(fmt.Sprintf("convert: want %s -> %s, got %s -> %s",
			srcFormat, dstFormat, src.Format(), dst.Format()))
	}
	if src.Width() != dst.Width() || src.Height() != dst.Height() {
		panic(fmt.Sprintf("convert: dimension mismatch %dx%d -> %dx%d",
			src.Width(), src.Height(), dst.Width(), dst.Height()))
	}
}
