package capture

import (
	"errors"
	"fmt"
	"time"
)

// ErrStopped is returned by Next once Stop has been called
var ErrStopped = errors.New("capture stopped")

// Frame is one captured picture in interleaved 4:2:2 (YUYV)
type Frame struct {
	// Seq is the monotonic sequence number, starting at 1
	Seq uint64
	// Captured is the wall clock time the frame was taken
	Captured time.Time
	Width    int
	Height   int
	Data     []byte
}

// Source defines the interface for camera capture backends
type Source interface {
	// Start opens the device and begins streaming
	Start() error

	// Stop releases the device. A blocked Next returns ErrStopped.
	Stop() error

	// Next blocks until the next frame is available. It returns io.EOF or
	// ErrStopped when the stream has ended normally.
	Next() (Frame, error)

	// Name returns a human-readable name for this source
	Name() string
}

// Geometry is the fixed capture format every backend is configured with
type Geometry struct {
	Width       int
	Height      int
	IntervalNum int
	IntervalDen int
}

// FrameSize returns the byte size of one YUYV frame
func (g Geometry) FrameSize() int {
	return g.Width * g.Height * 2
}

// Interval returns the time between frames
func (g Geometry) Interval() time.Duration {
	return time.Duration(g.IntervalNum) * time.Second / time.Duration(g.IntervalDen)
}

// Framerate returns the rate as a GStreamer fraction, frames per second
func (g Geometry) Framerate() string {
	return fmt.Sprintf("%d/%d", g.IntervalDen, g.IntervalNum)
}

// V4L2Source returns the head of a GStreamer pipeline description that
// captures YUY2 frames of this geometry from device.
func (g Geometry) V4L2Source(device string) string {
	return fmt.Sprintf(
		"v4l2src device=%s do-timestamp=true ! "+
			"video/x-raw,format=YUY2,width=%d,height=%d,framerate=%s",
		device, g.Width, g.Height, g.Framerate(),
	)
}
