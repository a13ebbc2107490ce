package compose

import (
	"fmt"

	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

// Mode is the pixelwise operation used to combine two buffers
type Mode int

const (
	AbsoluteDiff Mode = iota
	Average
	AverageLeftWeight
)

func (m Mode) String() string {
	switch m {
	case AbsoluteDiff:
		return "absdiff"
	case Average:
		return "average"
	case AverageLeftWeight:
		return "average-left"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Apply combines one pair of samples. The arithmetic is done in int and
// narrowed back to a byte.
func (m Mode) Apply(left, right byte) byte {
	l, r := int(left), int(right)
	switch m {
	case AbsoluteDiff:
		d := l - r
		if d < 0 {
			d = -d
		}
		return byte(d)
	case Average:
		return byte((l + r) / 2)
	case AverageLeftWeight:
		return byte((2*l + r) / 3)
	default:
		panic(fmt.Sprintf("compose: unknown mode %d", int(m)))
	}
}

// Compose combines two single-channel buffers of identical size into a new one
func Compose(left, right *surface.Buffer, mode Mode) *surface.Buffer {
	if left.Format() != surface.Luma || right.Format() != surface.Luma {
		panic(fmt.Sprintf("compose: want luma buffers, got %s and %s", left.Format(), right.Format()))
	}
	if left.Width() != right.Width() || left.Height() != right.Height() {
		panic(fmt.Sprintf("compose: dimension mismatch %dx%d vs %dx%d",
			left.Width(), left.Height(), right.Width(), right.Height()))
	}

	out := surface.NewBlack(surface.Luma, left.Width(), left.Height())
	l, r, o := left.Bytes(), right.Bytes(), out.Bytes()
	for i := range o {
		o[i] = mode.Apply(l[i], r[i])
	}
	return out
}
