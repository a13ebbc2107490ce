package encode

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

func grayPicture(w, h int) *surface.Buffer {
	pic := surface.NewBlack(surface.YUV420P, w, h)
	y, u, v := pic.Planes()
	for i := range y {
		y[i] = byte(i % 251)
	}
	for i := range u {
		u[i], v[i] = 0x80, 0x80
	}
	return pic
}

func TestJPEGEncodes(t *testing.T) {
	data, err := JPEG{Quality: 70}.Encode(grayPicture(64, 48))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestJPEGRejectsBadQuality(t *testing.T) {
	for _, q := range []int{0, -5, 101} {
		_, err := JPEG{Quality: q}.Encode(grayPicture(16, 16))
		assert.ErrorIs(t, err, ErrInvalidParams, "quality %d", q)
	}
}

func TestWebPEncodes(t *testing.T) {
	data, err := WebP{Quality: 70}.Encode(grayPicture(64, 48))
	require.NoError(t, err)

	require.Greater(t, len(data), 12)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WEBP", string(data[8:12]))
	assert.Equal(t, "webp q70", WebP{Quality: 70}.Name())
}

func TestWebPRejectsBadInput(t *testing.T) {
	for _, q := range []int{0, 101} {
		_, err := WebP{Quality: q}.Encode(grayPicture(16, 16))
		assert.ErrorIs(t, err, ErrInvalidParams, "quality %d", q)
	}

	_, err := WebP{Quality: 70}.Encode(surface.NewBlack(surface.YUV422P, 16, 16))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestScaledEncodes(t *testing.T) {
	for _, f := range []Filter{FilterBilinear, FilterCatmullRom} {
		t.Run(string(f), func(t *testing.T) {
			data, err := Scaled{Width: 32, Height: 24, Filter: f, Quality: 80}.Encode(grayPicture(64, 48))
			require.NoError(t, err)

			img, err := jpeg.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 32, 24), img.Bounds())
		})
	}
}

func TestScaledRejectsBadParams(t *testing.T) {
	tests := []struct {
		name string
		enc  Scaled
	}{
		{"zero width", Scaled{Width: 0, Height: 10, Quality: 50}},
		{"negative height", Scaled{Width: 10, Height: -1, Quality: 50}},
		{"bad quality", Scaled{Width: 10, Height: 10, Quality: 0}},
		{"bad filter", Scaled{Width: 10, Height: 10, Quality: 50, Filter: "lanczos"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.enc.Encode(grayPicture(16, 16))
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}
