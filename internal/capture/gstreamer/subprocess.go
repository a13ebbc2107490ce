package gstreamer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/PunchCam/internal/capture"
	"github.com/bryanchriswhite/PunchCam/internal/logger"
)

// Subprocess captures by running gst-launch-1.0 and reading raw frames from
// its stdout. It avoids linking GStreamer into the process.
type Subprocess struct {
	device   string
	geometry capture.Geometry
	command  string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	reader  *bufio.Reader
	running bool
	stopped bool
	seq     uint64
}

// NewSubprocess creates a subprocess capture for device
func NewSubprocess(device string, g capture.Geometry) *Subprocess {
	return &Subprocess{
		device:   device,
		geometry: g,
		command:  "gst-launch-1.0",
	}
}

// LaunchLine returns the full gst-launch pipeline description
func (s *Subprocess) LaunchLine() string {
	return s.geometry.V4L2Source(s.device) + " ! fdsink fd=1 sync=false"
}

// Start launches the subprocess
func (s *Subprocess) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("pipeline already running")
	}

	log := logger.WithComponent("gstreamer-subprocess")

	pipelineStr := s.LaunchLine()
	log.Debug().Str("pipeline", pipelineStr).Msg("Starting GStreamer subprocess")

	// Use sh -c to properly parse the pipeline string with ! separators
	s.cmd = exec.Command("sh", "-c", s.command+" -q "+pipelineStr)

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := s.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.command, err)
	}

	s.stdout = stdout
	s.reader = bufio.NewReaderSize(stdout, s.geometry.FrameSize()*2)
	s.running = true
	s.stopped = false

	go logStderr(stderr)

	log.Info().Str("device", s.device).Int("pid", s.cmd.Process.Pid).Msg("GStreamer subprocess started")
	return nil
}

// Next reads exactly one frame from the subprocess
func (s *Subprocess) Next() (capture.Frame, error) {
	s.mu.Lock()
	reader := s.reader
	running := s.running
	s.mu.Unlock()

	if !running {
		return capture.Frame{}, capture.ErrStopped
	}

	data := make([]byte, s.geometry.FrameSize())
	n, err := io.ReadFull(reader, data)
	if err != nil {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return capture.Frame{}, capture.ErrStopped
		}
		if errors.Is(err, io.EOF) {
			return capture.Frame{}, fmt.Errorf("%s exited: %w", s.command, io.EOF)
		}
		return capture.Frame{}, fmt.Errorf("failed to read frame (%d of %d bytes): %w", n, len(data), err)
	}

	s.seq++
	return capture.Frame{
		Seq:      s.seq,
		Captured: time.Now(),
		Width:    s.geometry.Width,
		Height:   s.geometry.Height,
		Data:     data,
	}, nil
}

// logStderr forwards GStreamer messages to the logger
func logStderr(stderr io.Reader) {
	log := logger.WithComponent("gstreamer-subprocess")
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "ERROR") || strings.Contains(line, "WARN") {
			log.Warn().Str("gst", line).Msg("GStreamer message")
		} else {
			log.Debug().Str("gst", line).Msg("GStreamer output")
		}
	}
}

// Stop kills the subprocess
func (s *Subprocess) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	log := logger.WithComponent("gstreamer-subprocess")
	s.stopped = true

	if s.cmd != nil && s.cmd.Process != nil {
		log.Debug().Int("pid", s.cmd.Process.Pid).Msg("Killing GStreamer subprocess")
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}

	s.running = false
	log.Info().Msg("GStreamer subprocess stopped")
	return nil
}

func (s *Subprocess) Name() string {
	return "gst-launch " + s.device
}
