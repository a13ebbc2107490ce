package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bryanchriswhite/PunchCam/internal/logger"
)

// FileSource replays a raw YUYV file, one frame per Next
type FileSource struct {
	path     string
	geometry Geometry
	realtime bool

	mu      sync.Mutex
	file    *os.File
	reader  *bufio.Reader
	seq     uint64
	last    time.Time
	stopped chan struct{}
	started bool

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewFileSource creates a replay source. With realtime set, Next paces
// frames at the configured interval.
func NewFileSource(path string, g Geometry, realtime bool) *FileSource {
	return &FileSource{
		path:     path,
		geometry: g,
		realtime: realtime,
		stopped:  make(chan struct{}),
		now:      time.Now,
		after:    time.After,
	}
}

// Start opens the file
func (s *FileSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("file source already started")
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	s.file = f
	s.reader = bufio.NewReaderSize(f, s.geometry.FrameSize())
	s.started = true

	logger.WithComponent("file-source").Info().
		Str("path", s.path).
		Int("width", s.geometry.Width).
		Int("height", s.geometry.Height).
		Bool("realtime", s.realtime).
		Msg("Replaying capture file")
	return nil
}

// Stop closes the file; pending and later calls to Next return ErrStopped
func (s *FileSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopped:
		return nil
	default:
	}
	close(s.stopped)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// Next reads the next frame. A trailing partial frame is reported as
// io.ErrUnexpectedEOF. The realtime wait happens without the lock held so
// a Stop during it makes Next return ErrStopped.
func (s *FileSource) Next() (Frame, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return Frame{}, err
	}
	var wait time.Duration
	if s.realtime && !s.last.IsZero() {
		wait = s.geometry.Interval() - s.now().Sub(s.last)
	}
	s.mu.Unlock()

	if wait > 0 {
		select {
		case <-s.stopped:
			return Frame{}, ErrStopped
		case <-s.after(wait):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return Frame{}, err
	}

	data := make([]byte, s.geometry.FrameSize())
	if _, err := io.ReadFull(s.reader, data); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("truncated frame %d in %s: %w", s.seq+1, s.path, err)
		}
		return Frame{}, err
	}

	s.seq++
	s.last = s.now()
	return Frame{
		Seq:      s.seq,
		Captured: s.last,
		Width:    s.geometry.Width,
		Height:   s.geometry.Height,
		Data:     data,
	}, nil
}

// ready must be called with mu held
func (s *FileSource) ready() error {
	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}
	if !s.started {
		return fmt.Errorf("file source not started")
	}
	return nil
}

func (s *FileSource) Name() string {
	return "file " + s.path
}
