package gstreamer

import (
	"fmt"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/bryanchriswhite/PunchCam/internal/capture"
	"github.com/bryanchriswhite/PunchCam/internal/logger"
)

// Pipeline captures from a V4L2 device through an in-process GStreamer
// pipeline ending in an appsink.
type Pipeline struct {
	device   string
	geometry capture.Geometry

	mu       sync.RWMutex
	pipeline *gst.Pipeline
	appsink  *app.Sink
	running  bool
	seq      uint64
}

// NewPipeline creates a capture pipeline for device
func NewPipeline(device string, g capture.Geometry) *Pipeline {
	return &Pipeline{
		device:   device,
		geometry: g,
	}
}

// Start initializes and starts the GStreamer pipeline
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("pipeline already running")
	}

	log := logger.WithComponent("gstreamer")

	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	// Pull mode: no signals, the producer goroutine blocks in PullSample.
	// max-buffers bounds the latency; drop=false keeps every frame so the
	// queue, not the sink, applies backpressure.
	pipelineStr := p.geometry.V4L2Source(p.device) + " ! " +
		"appsink name=sink emit-signals=false max-buffers=4 drop=false sync=false"

	log.Debug().Str("pipeline", pipelineStr).Msg("Creating GStreamer pipeline")

	pipeline, err := gst.NewPipelineFromString(pipelineStr)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	sinkElement, err := pipeline.GetElementByName("sink")
	if err != nil {
		pipeline.Unref()
		return fmt.Errorf("failed to get appsink: %w", err)
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.Unref()
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	p.pipeline = pipeline
	p.appsink = app.SinkFromElement(sinkElement)
	p.running = true

	log.Info().
		Str("device", p.device).
		Int("width", p.geometry.Width).
		Int("height", p.geometry.Height).
		Str("framerate", p.geometry.Framerate()).
		Msg("GStreamer pipeline started")

	return nil
}

// Stop stops the GStreamer pipeline. A blocked Next wakes up with
// capture.ErrStopped.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	pipeline := p.pipeline
	p.mu.Unlock()

	// Going to NULL flushes the appsink, which releases PullSample
	pipeline.SetState(gst.StateNull)

	p.mu.Lock()
	p.pipeline.Unref()
	p.pipeline = nil
	p.appsink = nil
	p.mu.Unlock()

	logger.WithComponent("gstreamer").Info().Msg("GStreamer pipeline stopped")
	return nil
}

// Next blocks until the appsink yields a sample and copies its bytes out
func (p *Pipeline) Next() (capture.Frame, error) {
	p.mu.RLock()
	appsink := p.appsink
	running := p.running
	p.mu.RUnlock()

	if !running || appsink == nil {
		return capture.Frame{}, capture.ErrStopped
	}

	sample := appsink.PullSample()
	if sample == nil {
		if appsink.IsEOS() {
			return capture.Frame{}, fmt.Errorf("device %s: end of stream: %w", p.device, capture.ErrStopped)
		}
		p.mu.RLock()
		running = p.running
		p.mu.RUnlock()
		if !running {
			return capture.Frame{}, capture.ErrStopped
		}
		return capture.Frame{}, fmt.Errorf("device %s: appsink returned no sample", p.device)
	}
	captured := time.Now()

	buffer := sample.GetBuffer()
	if buffer == nil {
		return capture.Frame{}, fmt.Errorf("device %s: sample without buffer", p.device)
	}

	mapInfo := buffer.Map(gst.MapRead)
	if mapInfo == nil {
		return capture.Frame{}, fmt.Errorf("device %s: failed to map buffer", p.device)
	}
	data := mapInfo.Bytes()

	// Copy frame data (GStreamer will reuse the buffer)
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	if len(frameData) != p.geometry.FrameSize() {
		return capture.Frame{}, fmt.Errorf("device %s: frame is %d bytes, want %d",
			p.device, len(frameData), p.geometry.FrameSize())
	}

	p.seq++
	return capture.Frame{
		Seq:      p.seq,
		Captured: captured,
		Width:    p.geometry.Width,
		Height:   p.geometry.Height,
		Data:     frameData,
	}, nil
}

func (p *Pipeline) Name() string {
	return "gstreamer " + p.device
}
