package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

const testW, testH = 96, 96

func uniformFrame(seq uint64, value byte) Frame {
	pic := surface.NewBlack(surface.YUV420P, testW, testH)
	y, u, v := pic.Planes()
	for i := range y {
		y[i] = value
	}
	for i := range u {
		u[i], v[i] = 0x80, 0x80
	}
	return Frame{Seq: seq, Captured: time.Unix(int64(seq), 0), Picture: pic}
}

// stripeFrame has 8 pixel wide vertical stripes, which light up well over a
// thousand edge pixels.
func stripeFrame(seq uint64) Frame {
	f := uniformFrame(seq, 0)
	y, _, _ := f.Picture.Planes()
	for row := 0; row < testH; row++ {
		for x := 0; x < testW; x++ {
			if (x/8)%2 == 1 {
				y[row*testW+x] = 255
			}
		}
	}
	return f
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.BackWindow)
	assert.Equal(t, 12, cfg.ArmLength)
	assert.Equal(t, byte(0x60), cfg.LitThreshold)
	assert.Equal(t, 100, cfg.TriggerMeanLit)
}

func TestIdenticalFramesGiveZeroEdge(t *testing.T) {
	d := NewDetector(DefaultConfig())

	d.Push(uniformFrame(1, 128))
	first := d.LastEdge().Bytes()
	assert.NotEqual(t, make([]byte, len(first)), first, "first diff is against a black baseline")

	d.Push(uniformFrame(2, 128))
	assert.Equal(t, make([]byte, testW*testH), d.LastEdge().Bytes())
	assert.Zero(t, d.LastLit())
}

func TestNoEmissionBeforeWindowFills(t *testing.T) {
	d := NewDetector(DefaultConfig())

	for i := uint64(1); i <= 10; i++ {
		f := stripeFrame(i)
		if i%2 == 0 {
			f = uniformFrame(i, 0)
		}
		_, ok := d.Push(f)
		require.False(t, ok, "call %d emitted", i)
		assert.Greater(t, d.LastLit(), 1000)
	}
	assert.Equal(t, 10, d.Pending())
	assert.Positive(t, d.Armed())

	out, ok := d.Push(stripeFrame(11))
	require.True(t, ok)
	assert.Equal(t, uint64(1), out.Seq)
	assert.Equal(t, 10, d.Pending())
}

func TestSpikeEmitsPreAndPostRoll(t *testing.T) {
	d := NewDetector(DefaultConfig())

	var emitted []uint64
	push := func(f Frame) {
		if out, ok := d.Push(f); ok {
			emitted = append(emitted, out.Seq)
		}
	}

	const spike = 16
	for i := uint64(1); i <= 60; i++ {
		if i == spike {
			push(stripeFrame(i))
			continue
		}
		push(uniformFrame(i, 0))
	}

	// The spike lights its own call and the next one (the edge vanishes).
	// Each stays in the window for 10 calls, then post-roll runs 12 calls
	// counted from the last trigger.
	require.Len(t, emitted, 22)
	for i, seq := range emitted {
		assert.Equal(t, uint64(spike-10+i), seq)
	}
	assert.Zero(t, d.Armed())
}

func TestQuiescentNeverEmits(t *testing.T) {
	d := NewDetector(DefaultConfig())
	for i := uint64(1); i <= 40; i++ {
		_, ok := d.Push(uniformFrame(i, 0))
		require.False(t, ok)
	}
	assert.Equal(t, 10, d.Pending())
}

func TestEmittedFrameIsTheHeldOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BackWindow = 2
	cfg.TriggerMeanLit = 0
	cfg.LitThreshold = 0
	d := NewDetector(cfg)

	first := stripeFrame(1)
	_, ok := d.Push(first)
	require.False(t, ok)
	_, ok = d.Push(uniformFrame(2, 0))
	require.False(t, ok)

	out, ok := d.Push(uniformFrame(3, 0))
	require.True(t, ok)
	assert.Same(t, first.Picture, out.Picture)
	assert.Equal(t, first.Captured, out.Captured)
}

func TestPushRejectsMismatchedFrames(t *testing.T) {
	d := NewDetector(DefaultConfig())
	d.Push(uniformFrame(1, 0))

	other := Frame{Picture: surface.NewBlack(surface.YUV420P, 32, 32)}
	assert.Panics(t, func() { d.Push(other) })

	assert.Panics(t, func() {
		d.Push(Frame{Picture: surface.NewBlack(surface.YUV422P, testW, testH)})
	})
}
