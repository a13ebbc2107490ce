package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

func TestBoxAverageFloors(t *testing.T) {
	px := [9]byte{1, 1, 1, 1, 1, 1, 1, 1, 9}
	assert.Equal(t, byte(1), BoxAverage.Eval(&px))

	px = [9]byte{255, 255, 255, 255, 255, 255, 255, 255, 255}
	assert.Equal(t, byte(255), BoxAverage.Eval(&px))
}

func TestSobelEval(t *testing.T) {
	tests := []struct {
		name     string
		px       [9]byte
		expected byte
	}{
		{"flat", [9]byte{7, 7, 7, 7, 7, 7, 7, 7, 7}, 0},
		{"small horizontal gradient", [9]byte{0, 0, 10, 0, 0, 10, 0, 0, 10}, 40},
		{"diagonal rounds", [9]byte{0, 0, 0, 0, 0, 0, 0, 0, 1}, 1},
		{"saturates", [9]byte{0, 0, 255, 0, 0, 255, 0, 0, 255}, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sobel.Eval(&tt.px))
		})
	}
}

func TestApplyLeavesBorders(t *testing.T) {
	src := surface.NewBlack(surface.Luma, 4, 4)
	for i := range src.Bytes() {
		src.Bytes()[i] = 90
	}
	dst := surface.NewBlack(surface.Luma, 4, 4)
	for i := range dst.Bytes() {
		dst.Bytes()[i] = 3
	}

	Apply(dst, src, BoxAverage)

	assert.Equal(t, []byte{
		3, 3, 3, 3,
		3, 90, 90, 3,
		3, 90, 90, 3,
		3, 3, 3, 3,
	}, dst.Bytes())
}

func TestRunZeroesBorders(t *testing.T) {
	src := surface.NewBlack(surface.Luma, 5, 3)
	for i := range src.Bytes() {
		src.Bytes()[i] = 200
	}

	out := Run(src, BoxAverage)

	assert.Equal(t, []byte{
		0, 0, 0, 0, 0,
		0, 200, 200, 200, 0,
		0, 0, 0, 0, 0,
	}, out.Bytes())
}

func TestSobelVerticalStep(t *testing.T) {
	const w, h, step = 32, 16, 16
	src := surface.NewBlack(surface.Luma, w, h)
	pix := src.Bytes()
	for y := 0; y < h; y++ {
		for x := step; x < w; x++ {
			pix[y*w+x] = 200
		}
	}

	out := Run(src, Sobel).Bytes()

	for y := 1; y < h-1; y++ {
		near := out[y*w+step-1]
		far := out[y*w+4]
		require.Greater(t, near, far, "row %d", y)
		assert.Equal(t, byte(255), out[y*w+step])
		assert.Equal(t, byte(0), out[y*w+w-4])
	}
}

func TestApplyRejectsNonLuma(t *testing.T) {
	src := surface.NewBlack(surface.YUV420P, 4, 4)
	assert.Panics(t, func() { Run(src, Sobel) })
}
