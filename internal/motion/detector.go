package motion

import (
	"fmt"
	"time"

	"github.com/bryanchriswhite/PunchCam/internal/compose"
	"github.com/bryanchriswhite/PunchCam/internal/kernel"
	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

// Config holds the detector policy. The defaults have no calibration
// behind them beyond matching the recordings made so far; treat them as
// tunables for a new camera.
type Config struct {
	// BackWindow is how many frames are held before a decision is made
	BackWindow int `json:"back_window" yaml:"back_window"`
	// ArmLength is how many calls keep emitting after the last trigger
	ArmLength int `json:"arm_length" yaml:"arm_length"`
	// LitThreshold is the edge-diff value a pixel must exceed to count as lit
	LitThreshold byte `json:"lit_threshold" yaml:"lit_threshold"`
	// TriggerMeanLit is the mean lit pixel count per held frame that arms emission
	TriggerMeanLit int `json:"trigger_mean_lit" yaml:"trigger_mean_lit"`
}

// DefaultConfig returns the stock policy: 10 frames of pre-roll, 12 calls of
// post-roll, lit above 0x60, trigger at a mean of 100 lit pixels.
func DefaultConfig() Config {
	return Config{
		BackWindow:     10,
		ArmLength:      12,
		LitThreshold:   0x60,
		TriggerMeanLit: 100,
	}
}

// Frame is a captured picture in planar 4:2:0 with its capture metadata
type Frame struct {
	Seq      uint64
	Captured time.Time
	Picture  *surface.Buffer
}

type held struct {
	lit   int
	frame Frame
}

// Detector decides which frames are worth keeping. It is not safe for
// concurrent use; the pipeline consumer owns it.
type Detector struct {
	cfg Config

	denoiseAvg *surface.Buffer
	lastEdge   *surface.Buffer
	lastLit    int
	recents    []held
	emitCtr    int
}

// NewDetector creates a detector with the given policy
func NewDetector(cfg Config) *Detector {
	if cfg.BackWindow < 1 || cfg.ArmLength < 1 {
		panic(fmt.Sprintf("motion: invalid window config %+v", cfg))
	}
	return &Detector{
		cfg:     cfg,
		recents: make([]held, 0, cfg.BackWindow+1),
	}
}

// Push feeds the next frame. When the detector is armed it returns the frame
// that just left the look-behind window; otherwise ok is false and that frame
// is dropped.
func (d *Detector) Push(f Frame) (out Frame, ok bool) {
	if f.Picture.Format() != surface.YUV420P {
		panic(fmt.Sprintf("motion: want yuv420p frame, got %s", f.Picture.Format()))
	}

	luma := f.Picture.Luma()
	edge := kernel.Run(kernel.Run(luma, kernel.BoxAverage), kernel.Sobel)

	if d.denoiseAvg == nil {
		d.denoiseAvg = surface.NewBlack(surface.Luma, luma.Width(), luma.Height())
	}
	d.lastEdge = compose.Compose(d.denoiseAvg, edge, compose.AbsoluteDiff)
	d.denoiseAvg = edge

	d.lastLit = countAbove(d.lastEdge.Bytes(), d.cfg.LitThreshold)
	d.recents = append(d.recents, held{lit: d.lastLit, frame: f})

	var candidate Frame
	var haveCandidate bool
	if len(d.recents) > d.cfg.BackWindow {
		candidate, haveCandidate = d.recents[0].frame, true
		d.recents[0] = held{}
		d.recents = append(d.recents[:0], d.recents[1:]...)
	}

	var sum int
	for _, h := range d.recents {
		sum += h.lit
	}
	if len(d.recents)*d.cfg.TriggerMeanLit < sum {
		d.emitCtr = d.cfg.ArmLength
	}

	if d.emitCtr > 0 {
		d.emitCtr--
		return candidate, haveCandidate
	}
	return Frame{}, false
}

// LastEdge returns the most recent edge difference. It is replaced, not
// mutated, on every Push.
func (d *Detector) LastEdge() *surface.Buffer { return d.lastEdge }

// LastLit returns the lit pixel count of the most recent Push
func (d *Detector) LastLit() int { return d.lastLit }

// Armed returns how many more calls will emit without a new trigger
func (d *Detector) Armed() int { return d.emitCtr }

// Pending returns how many frames are held in the look-behind window
func (d *Detector) Pending() int { return len(d.recents) }

func countAbove(pix []byte, threshold byte) int {
	n := 0
	for _, p := range pix {
		if p > threshold {
			n++
		}
	}
	return n
}
