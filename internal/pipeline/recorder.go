package pipeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/PunchCam/internal/capture"
	"github.com/bryanchriswhite/PunchCam/internal/config"
	"github.com/bryanchriswhite/PunchCam/internal/convert"
	"github.com/bryanchriswhite/PunchCam/internal/encode"
	"github.com/bryanchriswhite/PunchCam/internal/framing"
	"github.com/bryanchriswhite/PunchCam/internal/logger"
	"github.com/bryanchriswhite/PunchCam/internal/motion"
	"github.com/bryanchriswhite/PunchCam/internal/overlay"
	"github.com/bryanchriswhite/PunchCam/internal/punch"
	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

// Options configures a Recorder
type Options struct {
	Width  int
	Height int

	Detector motion.Config
	// Full encodes every emitted frame for the fullsize stream
	Full encode.Encoder
	// Scaled encodes emitted frames for the scaled stream, if there is one
	Scaled encode.Encoder

	// Overlay is drawn onto emitted frames before encoding, if set
	Overlay *overlay.Manager

	PunchFailure string
}

// OptionsFromConfig derives recorder options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := Options{
		Width:        cfg.Camera.Width,
		Height:       cfg.Camera.Height,
		Detector:     cfg.Detector,
		PunchFailure: cfg.Output.PunchFailure,
	}
	if cfg.Output.Codec == config.CodecJPEG {
		opts.Full = encode.JPEG{Quality: cfg.Output.Quality}
	} else {
		opts.Full = encode.WebP{Quality: cfg.Output.Quality}
	}
	if cfg.Output.ScaledWidth > 0 {
		opts.Scaled = encode.Scaled{
			Width:   cfg.Output.ScaledWidth,
			Height:  cfg.Output.ScaledHeight,
			Filter:  encode.Filter(cfg.Output.ScaleFilter),
			Quality: cfg.Output.Quality,
		}
	}
	if len(cfg.Output.Overlay) > 0 {
		m, err := overlay.LoadFromConfig(cfg.Output.Overlay)
		if err != nil {
			return Options{}, err
		}
		opts.Overlay = m
	}
	return opts, nil
}

type sink struct {
	name   string
	w      *punch.Writer
	framed *framing.Writer
	warned bool
}

func newSink(s *Stream, framed bool) *sink {
	if s == nil {
		return nil
	}
	out := &sink{name: s.Name, w: s.Writer}
	if framed {
		out.framed = framing.NewWriter(s.Writer)
	}
	return out
}

// Recorder is the consumer stage: it converts each captured frame, runs the
// motion detector and writes every stream. It is owned by one goroutine.
type Recorder struct {
	opts  Options
	stats *Stats
	log   zerolog.Logger

	detector *motion.Detector
	seen     int
	planar   *surface.Buffer
	edgePic  *surface.Buffer

	raw, edge, full, scaled *sink
}

// NewRecorder builds a recorder writing to the given outputs. Outputs.Full is
// required; the other streams are optional.
func NewRecorder(opts Options, out *Outputs, stats *Stats) (*Recorder, error) {
	if out == nil || out.Full == nil {
		return nil, errors.New("recorder needs a fullsize stream")
	}
	if opts.Full == nil {
		return nil, errors.New("recorder needs a fullsize encoder")
	}
	if out.Scaled != nil && opts.Scaled == nil {
		return nil, errors.New("scaled stream configured without a scaled encoder")
	}
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width%2 != 0 || opts.Height%2 != 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.PunchFailure == "" {
		opts.PunchFailure = config.PunchFailureWarn
	}
	if stats == nil {
		stats = NewStats("")
	}

	edgePic := surface.NewBlack(surface.YUV420P, opts.Width, opts.Height)
	_, u, v := edgePic.Planes()
	for i := range u {
		u[i], v[i] = 0x80, 0x80
	}

	l := logger.WithComponent("recorder").With().Str("session", stats.SessionID).Logger()

	return &Recorder{
		opts:     opts,
		stats:    stats,
		log:      l,
		detector: motion.NewDetector(opts.Detector),
		planar:   surface.NewBlack(surface.YUV422P, opts.Width, opts.Height),
		edgePic:  edgePic,
		raw:      newSink(out.Raw, false),
		edge:     newSink(out.Edge, false),
		full:     newSink(out.Full, true),
		scaled:   newSink(out.Scaled, true),
	}, nil
}

// Process handles one captured frame
func (r *Recorder) Process(f capture.Frame) error {
	if f.Width != r.opts.Width || f.Height != r.opts.Height {
		return fmt.Errorf("frame %d is %dx%d, recorder expects %dx%d",
			f.Seq, f.Width, f.Height, r.opts.Width, r.opts.Height)
	}
	src, err := surface.Wrap(surface.YUYV, f.Width, f.Height, f.Data)
	if err != nil {
		return fmt.Errorf("frame %d: %w", f.Seq, err)
	}
	if err := convert.YUYVToYUV422P(r.planar, src); err != nil {
		return fmt.Errorf("failed to convert frame %d: %w", f.Seq, err)
	}
	if err := r.writeRaw(r.raw, r.planar.Bytes()); err != nil {
		return err
	}

	out, ok := r.detector.Push(motion.Frame{
		Seq:      f.Seq,
		Captured: f.Captured,
		Picture:  convert.Downsample(r.planar),
	})
	r.seen++
	r.stats.processed.Add(1)
	r.stats.lastLit.Store(int64(r.detector.LastLit()))
	r.stats.armed.Store(int64(r.detector.Armed()))

	if r.edge != nil {
		y, _, _ := r.edgePic.Planes()
		copy(y, r.detector.LastEdge().Bytes())
		if err := r.writeRaw(r.edge, r.edgePic.Bytes()); err != nil {
			return err
		}
	}

	if !ok {
		if r.seen > r.opts.Detector.BackWindow {
			r.stats.discarded.Add(1)
		}
		return nil
	}

	if r.opts.Overlay != nil {
		r.opts.Overlay.Render(out.Picture, overlay.Stamp{Seq: out.Seq, Captured: out.Captured})
	}
	if err := r.emit(r.full, r.opts.Full, out); err != nil {
		return err
	}
	if r.scaled != nil {
		if err := r.emit(r.scaled, r.opts.Scaled, out); err != nil {
			return err
		}
	}
	r.stats.emitted.Add(1)
	r.log.Debug().Uint64("seq", out.Seq).Int("armed", r.detector.Armed()).Msg("Frame emitted")
	return nil
}

func (r *Recorder) emit(s *sink, enc encode.Encoder, f motion.Frame) error {
	payload, err := enc.Encode(f.Picture)
	if err != nil {
		return fmt.Errorf("failed to encode frame %d with %s: %w", f.Seq, enc.Name(), err)
	}
	return r.check(s, len(payload)+framing.HeaderSize, s.framed.WriteRecord(f.Captured, payload))
}

func (r *Recorder) writeRaw(s *sink, p []byte) error {
	if s == nil {
		return nil
	}
	n, err := s.w.Write(p)
	return r.check(s, n, err)
}

// check accounts a write and applies the punch failure policy to its error
func (r *Recorder) check(s *sink, n int, err error) error {
	var holeErr *punch.HoleError
	switch {
	case err == nil:
	case errors.As(err, &holeErr):
		r.stats.punchFailures.Add(1)
		if r.opts.PunchFailure == config.PunchFailureAbort {
			return fmt.Errorf("failed to reclaim %s stream space: %w", s.name, err)
		}
		if !s.warned {
			s.warned = true
			r.log.Warn().Err(err).Str("stream", s.name).
				Msg("Hole punching failed, stream will keep growing")
		}
	default:
		return fmt.Errorf("failed to write %s stream: %w", s.name, err)
	}
	r.stats.bytesWritten.Add(int64(n))
	r.stats.bytesPunched.Store(r.totalPunched())
	return nil
}

func (r *Recorder) totalPunched() int64 {
	var total int64
	for _, s := range []*sink{r.raw, r.edge, r.full, r.scaled} {
		if s != nil {
			total += s.w.Punched()
		}
	}
	return total
}

// Flush syncs every stream
func (r *Recorder) Flush() error {
	var errs []error
	for _, s := range []*sink{r.raw, r.edge, r.full, r.scaled} {
		if s == nil {
			continue
		}
		if err := s.w.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush %s stream: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
