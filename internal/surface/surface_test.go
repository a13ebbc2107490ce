package surface

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		format   Format
		expected int
	}{
		{Luma, 16 * 8},
		{YUYV, 16 * 8 * 2},
		{YUV422P, 16*8 + 2*(16*8/2)},
		{YUV420P, 16*8 + 2*(16*8/4)},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.format.Size(16, 8))
			assert.Len(t, NewBlack(tt.format, 16, 8).Bytes(), tt.expected)
		})
	}
}

func TestWrapRejectsWrongLength(t *testing.T) {
	_, err := Wrap(YUV420P, 4, 4, make([]byte, 23))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	b, err := Wrap(YUV420P, 4, 4, make([]byte, 24))
	require.NoError(t, err)
	assert.Equal(t, 4, b.Width())
	assert.Equal(t, 4, b.Height())
	assert.Equal(t, YUV420P, b.Format())
}

func TestPlanesShareStorage(t *testing.T) {
	b := NewBlack(YUV420P, 4, 2)
	y, u, v := b.Planes()
	require.Len(t, y, 8)
	require.Len(t, u, 2)
	require.Len(t, v, 2)

	y[7] = 1
	u[0] = 2
	v[1] = 3
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1, 2, 0, 0, 3}, b.Bytes())
}

func TestPlanesDoNotSpill(t *testing.T) {
	b := NewBlack(YUV422P, 4, 2)
	y, u, _ := b.Planes()
	assert.Equal(t, len(y), cap(y))

	_ = append(y, 0xFF)
	assert.Equal(t, byte(0), u[0], "append on y must not overwrite u")
}

func TestSingleChannelPlanes(t *testing.T) {
	for _, f := range []Format{Luma, YUYV} {
		b := NewBlack(f, 4, 2)
		y, u, v := b.Planes()
		assert.Len(t, y, f.Size(4, 2))
		assert.Nil(t, u)
		assert.Nil(t, v)
	}
}

func TestLumaCopies(t *testing.T) {
	b := NewBlack(YUV420P, 2, 2)
	copy(b.Bytes(), []byte{1, 2, 3, 4, 5, 6})

	l := b.Luma()
	assert.Equal(t, Luma, l.Format())
	assert.Equal(t, []byte{1, 2, 3, 4}, l.Bytes())

	l.Bytes()[0] = 9
	assert.Equal(t, byte(1), b.Bytes()[0])
}

func TestYCbCrView(t *testing.T) {
	b := NewBlack(YUV420P, 4, 4)
	img := b.YCbCr()
	assert.Equal(t, image.YCbCrSubsampleRatio420, img.SubsampleRatio)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Rect)
	assert.Equal(t, 2, img.CStride)

	img.Cb[0] = 42
	_, u, _ := b.Planes()
	assert.Equal(t, byte(42), u[0])

	assert.Panics(t, func() { NewBlack(Luma, 4, 4).YCbCr() })
}
