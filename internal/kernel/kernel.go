package kernel

import (
	"fmt"
	"math"

	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

// Kind selects one of the fixed 3x3 kernels
type Kind int

const (
	// BoxAverage is the floored mean of the 9 samples
	BoxAverage Kind = iota
	// Sobel is the rounded gradient magnitude, clamped to a byte
	Sobel
)

func (k Kind) String() string {
	switch k {
	case BoxAverage:
		return "box"
	case Sobel:
		return "sobel"
	default:
		return fmt.Sprintf("kernel(%d)", int(k))
	}
}

// Eval computes the kernel over a row-major 3x3 neighbourhood
func (k Kind) Eval(px *[9]byte) byte {
	switch k {
	case BoxAverage:
		return boxAverage(px)
	case Sobel:
		return sobel(px)
	default:
		panic(fmt.Sprintf("kernel: unknown kind %d", int(k)))
	}
}

func boxAverage(px *[9]byte) byte {
	var acc int
	for _, p := range px {
		acc += int(p)
	}
	return byte(acc / 9)
}

func sobel(px *[9]byte) byte {
	at := func(x, y int) int { return int(px[x+3*y]) }

	gx := (at(2, 0) + 2*at(2, 1) + at(2, 2)) - (at(0, 0) + 2*at(0, 1) + at(0, 2))
	gy := (at(0, 2) + 2*at(1, 2) + at(2, 2)) - (at(0, 0) + 2*at(1, 0) + at(2, 0))

	mag := math.Round(math.Sqrt(float64(gx*gx + gy*gy)))
	if mag > 255 {
		return 255
	}
	return byte(mag)
}

// Apply writes the kernel result for every interior pixel of src into dst.
// Row and column 0 and the last row and column of dst are left as they are.
func Apply(dst, src *surface.Buffer, k Kind) {
	if src.Format() != surface.Luma || dst.Format() != surface.Luma {
		panic(fmt.Sprintf("kernel: want luma buffers, got %s -> %s", src.Format(), dst.Format()))
	}
	if !src.SameGeometry(dst) {
		panic(fmt.Sprintf("kernel: dimension mismatch %dx%d -> %dx%d",
			src.Width(), src.Height(), dst.Width(), dst.Height()))
	}

	w, h := src.Width(), src.Height()
	in, out := src.Bytes(), dst.Bytes()

	var px [9]byte
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			for dy := 0; dy < 3; dy++ {
				row := (y+dy-1)*w + x - 1
				px[3*dy] = in[row]
				px[3*dy+1] = in[row+1]
				px[3*dy+2] = in[row+2]
			}
			out[y*w+x] = k.Eval(&px)
		}
	}
}

// Run applies k into a fresh zeroed buffer, so borders come out black
func Run(src *surface.Buffer, k Kind) *surface.Buffer {
	dst := surface.NewBlack(surface.Luma, src.Width(), src.Height())
	Apply(dst, src, k)
	return dst
}
