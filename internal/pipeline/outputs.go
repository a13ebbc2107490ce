package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"github.com/bryanchriswhite/PunchCam/internal/config"
	"github.com/bryanchriswhite/PunchCam/internal/logger"
	"github.com/bryanchriswhite/PunchCam/internal/punch"
)

// Stream is one sparse output file
type Stream struct {
	Name   string
	Path   string
	Writer *punch.Writer
}

// Outputs is the set of files a recording session writes. Disabled streams
// are nil.
type Outputs struct {
	Raw    *Stream
	Edge   *Stream
	Full   *Stream
	Scaled *Stream

	lock *flock.Flock
}

// StreamPath builds <prefix>_<sec>.<nsec>_<suffix>
func StreamPath(prefix string, started time.Time, suffix string) string {
	return fmt.Sprintf("%s_%d.%09d_%s", prefix, started.Unix(), started.Nanosecond(), suffix)
}

// FullSuffix names the fullsize stream file for codec
func FullSuffix(codec string) string {
	if codec == config.CodecJPEG {
		return "fs.fjpg"
	}
	return "fs.fwebp"
}

// OpenOutputs takes the prefix lock and creates every enabled stream
func OpenOutputs(cfg config.OutputConfig, started time.Time) (*Outputs, error) {
	log := logger.WithComponent("outputs")

	lock := flock.New(cfg.Prefix + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock output prefix: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("output prefix %s is in use by another recorder", cfg.Prefix)
	}

	o := &Outputs{lock: lock}
	open := func(name, suffix string) (*Stream, error) {
		path := StreamPath(cfg.Prefix, started, suffix)
		f, err := punch.OpenFile(path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("stream", name).Str("path", path).Msg("Writing stream")
		return &Stream{
			Name:   name,
			Path:   path,
			Writer: punch.NewWriter(cfg.KeepSizeShl, cfg.PunchSizeShl, f),
		}, nil
	}

	if o.Full, err = open("fullsize", FullSuffix(cfg.Codec)); err != nil {
		o.Close()
		return nil, err
	}
	if cfg.ScaledWidth > 0 {
		if o.Scaled, err = open("scaled", "sc.fjpg"); err != nil {
			o.Close()
			return nil, err
		}
	}
	if cfg.Raw {
		if o.Raw, err = open("raw", "raw.yuv422p"); err != nil {
			o.Close()
			return nil, err
		}
	}
	if cfg.Edge {
		if o.Edge, err = open("edge", "edge.yuv420p"); err != nil {
			o.Close()
			return nil, err
		}
	}
	return o, nil
}

// All returns the open streams
func (o *Outputs) All() []*Stream {
	var out []*Stream
	for _, s := range []*Stream{o.Full, o.Scaled, o.Raw, o.Edge} {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Close flushes and closes every stream, then releases the prefix lock
func (o *Outputs) Close() error {
	var errs []error
	for _, s := range o.All() {
		if err := s.Writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s stream: %w", s.Name, err))
		}
	}
	if o.lock != nil {
		if err := o.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release lock: %w", err))
		}
	}
	return errors.Join(errs...)
}
