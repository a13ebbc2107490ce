package router

import (
	"fmt"

	"github.com/bryanchriswhite/PunchCam/internal/capture"
	"github.com/bryanchriswhite/PunchCam/internal/capture/gstreamer"
	"github.com/bryanchriswhite/PunchCam/internal/config"
	"github.com/bryanchriswhite/PunchCam/internal/logger"
)

// GeometryOf extracts the capture geometry from the camera config
func GeometryOf(cam config.CameraConfig) capture.Geometry {
	return capture.Geometry{
		Width:       cam.Width,
		Height:      cam.Height,
		IntervalNum: cam.IntervalNum,
		IntervalDen: cam.IntervalDen,
	}
}

// NewSource picks the capture backend named by the camera config
func NewSource(cam config.CameraConfig) (capture.Source, error) {
	g := GeometryOf(cam)
	log := logger.WithComponent("capture-router")

	var src capture.Source
	switch cam.Backend {
	case config.BackendGst:
		src = gstreamer.NewPipeline(cam.Device, g)
	case config.BackendSubprocess:
		src = gstreamer.NewSubprocess(cam.Device, g)
	case config.BackendFile:
		src = capture.NewFileSource(cam.File, g, cam.Realtime)
	default:
		return nil, fmt.Errorf("unknown capture backend %q", cam.Backend)
	}

	log.Info().Str("backend", cam.Backend).Str("source", src.Name()).Msg("Capture backend selected")
	return src, nil
}
