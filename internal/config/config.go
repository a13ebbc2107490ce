package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/PunchCam/internal/logger"
	"github.com/bryanchriswhite/PunchCam/internal/motion"
)

// Capture backends
const (
	BackendGst        = "gst"
	BackendSubprocess = "subprocess"
	BackendFile       = "file"
)

// Hole punch failure policies
const (
	PunchFailureWarn  = "warn"
	PunchFailureAbort = "abort"
)

// Fullsize stream codecs
const (
	CodecWebP = "webp"
	CodecJPEG = "jpeg"
)

// CameraConfig describes the capture source
type CameraConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	Device  string `json:"device" yaml:"device"`
	Width   int    `json:"width" yaml:"width"`
	Height  int    `json:"height" yaml:"height"`
	// Frame interval is IntervalNum/IntervalDen seconds
	IntervalNum int `json:"interval_num" yaml:"interval_num"`
	IntervalDen int `json:"interval_den" yaml:"interval_den"`
	// File and Realtime apply to the file backend
	File     string `json:"file" yaml:"file"`
	Realtime bool   `json:"realtime" yaml:"realtime"`
}

// OutputConfig describes the files written by a recording session
type OutputConfig struct {
	Prefix       string `json:"prefix" yaml:"prefix"`
	KeepSizeShl  uint8  `json:"keep_size_shl" yaml:"keep_size_shl"`
	PunchSizeShl uint8  `json:"punch_size_shl" yaml:"punch_size_shl"`
	PunchFailure string `json:"punch_failure" yaml:"punch_failure"`
	// Codec selects the fullsize encoding; the scaled stream is always JPEG
	Codec        string `json:"codec" yaml:"codec"`
	Quality      int    `json:"quality" yaml:"quality"`
	ScaledWidth  int    `json:"scaled_width" yaml:"scaled_width"`
	ScaledHeight int    `json:"scaled_height" yaml:"scaled_height"`
	ScaleFilter  string `json:"scale_filter" yaml:"scale_filter"`
	Raw          bool   `json:"raw" yaml:"raw"`
	Edge         bool   `json:"edge" yaml:"edge"`

	// Overlay widgets are burned into emitted frames before encoding.
	// None are drawn unless configured.
	Overlay []OverlayWidget `json:"overlay" yaml:"overlay"`
}

// Overlay widget types
const (
	WidgetText      = "text"
	WidgetTimestamp = "timestamp"
)

// OverlayWidget describes one overlay widget
type OverlayWidget struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	X       int    `json:"x" yaml:"x"`
	Y       int    `json:"y" yaml:"y"`
	// Text is the label of a text widget
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	// Layout is the Go time layout of a timestamp widget
	Layout string `json:"layout,omitempty" yaml:"layout,omitempty"`
	// Opacity of zero means fully opaque
	Opacity    float64 `json:"opacity" yaml:"opacity"`
	Background bool    `json:"background" yaml:"background"`
}

// Config represents the application configuration
type Config struct {
	LogLevel      string        `json:"log_level" yaml:"log_level"`
	LogPretty     bool          `json:"log_pretty" yaml:"log_pretty"`
	Camera        CameraConfig  `json:"camera" yaml:"camera"`
	Detector      motion.Config `json:"detector" yaml:"detector"`
	Output        OutputConfig  `json:"output" yaml:"output"`
	QueueCapacity int           `json:"queue_capacity" yaml:"queue_capacity"`
	StatusPort    int           `json:"status_port" yaml:"status_port"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Camera: CameraConfig{
			Backend:     BackendGst,
			Device:      "/dev/video0",
			Width:       1280,
			Height:      960,
			IntervalNum: 1,
			IntervalDen: 5,
		},
		Detector: motion.DefaultConfig(),
		Output: OutputConfig{
			Prefix:       "capture",
			KeepSizeShl:  30,
			PunchSizeShl: 24,
			PunchFailure: PunchFailureWarn,
			Codec:        CodecWebP,
			Quality:      70,
			ScaleFilter:  "bilinear",
			Raw:          true,
			Edge:         true,
		},
		QueueCapacity: 10,
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch logger.LogLevel(strings.ToLower(c.LogLevel)) {
	case logger.DebugLevel, logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel, "warning", "":
	default:
		add("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	switch c.Camera.Backend {
	case BackendGst, BackendSubprocess:
		if c.Camera.Device == "" {
			add("camera.device is required for the %s backend", c.Camera.Backend)
		}
	case BackendFile:
		if c.Camera.File == "" {
			add("camera.file is required for the file backend")
		}
	default:
		add("camera.backend %q is not one of gst, subprocess, file", c.Camera.Backend)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 || c.Camera.Width%2 != 0 || c.Camera.Height%2 != 0 {
		add("camera size %dx%d must be positive and even", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.IntervalNum <= 0 || c.Camera.IntervalDen <= 0 {
		add("camera interval %d/%d must be positive", c.Camera.IntervalNum, c.Camera.IntervalDen)
	}

	if c.Detector.BackWindow < 1 {
		add("detector.back_window must be at least 1")
	}
	if c.Detector.ArmLength < 1 {
		add("detector.arm_length must be at least 1")
	}
	if c.Detector.TriggerMeanLit < 0 {
		add("detector.trigger_mean_lit must not be negative")
	}

	o := c.Output
	if o.Prefix == "" {
		add("output.prefix is required")
	}
	if o.KeepSizeShl > 62 || o.PunchSizeShl > o.KeepSizeShl {
		add("output sizes need punch_size_shl <= keep_size_shl <= 62, got %d and %d", o.PunchSizeShl, o.KeepSizeShl)
	}
	if o.PunchFailure != PunchFailureWarn && o.PunchFailure != PunchFailureAbort {
		add("output.punch_failure %q is not one of warn, abort", o.PunchFailure)
	}
	if o.Codec != CodecWebP && o.Codec != CodecJPEG {
		add("output.codec %q is not one of webp, jpeg", o.Codec)
	}
	if o.Quality < 1 || o.Quality > 100 {
		add("output.quality %d is outside 1..100", o.Quality)
	}
	scaled := o.ScaledWidth != 0 || o.ScaledHeight != 0
	if scaled && (o.ScaledWidth <= 0 || o.ScaledHeight <= 0 || o.ScaledWidth%2 != 0 || o.ScaledHeight%2 != 0) {
		add("output scaled size %dx%d must be both zero or both positive and even", o.ScaledWidth, o.ScaledHeight)
	}
	if o.ScaleFilter != "" && o.ScaleFilter != "bilinear" && o.ScaleFilter != "catmullrom" {
		add("output.scale_filter %q is not one of bilinear, catmullrom", o.ScaleFilter)
	}

	ids := make(map[string]bool)
	for i, w := range o.Overlay {
		if w.ID == "" {
			add("output.overlay[%d] needs an id", i)
		} else if ids[w.ID] {
			add("output.overlay id %q is used twice", w.ID)
		}
		ids[w.ID] = true
		if w.Type != WidgetText && w.Type != WidgetTimestamp {
			add("output.overlay[%d] type %q is not one of text, timestamp", i, w.Type)
		}
		if w.Opacity < 0 || w.Opacity > 1 {
			add("output.overlay[%d] opacity %v is outside 0..1", i, w.Opacity)
		}
	}

	if c.QueueCapacity < 1 {
		add("queue_capacity must be at least 1")
	}
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		add("status_port %d is out of range", c.StatusPort)
	}

	return errors.Join(errs...)
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns ~/.config/punchcam/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "punchcam", "config.yaml"), nil
}

// NewManager loads configFile, or the default path when it is empty. A
// missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("backend", m.config.Camera.Backend).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk on top of the defaults, so keys
// missing from the file keep their default values.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	return m.config.clone()
}

func (c *Config) clone() *Config {
	out := *c
	out.Output.Overlay = append([]OverlayWidget(nil), c.Output.Overlay...)
	return &out
}

// Update validates and replaces the configuration, then saves it
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg.clone()
	m.mu.Unlock()
	return m.Save()
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	log := logger.WithComponent("config")
	log.Debug().Str("path", m.configPath).Msg("Saving config")

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Error().Err(err).Str("config_dir", configDir).Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		log.Error().Err(err).Str("path", m.configPath).Msg("Failed to write config")
		return err
	}

	log.Info().Str("path", m.configPath).Msg("Config saved successfully")
	return nil
}

// GetConfigPath returns the path of the backing file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
