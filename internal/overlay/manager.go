package overlay

import (
	"fmt"
	"image"
	"sync"

	"github.com/bryanchriswhite/PunchCam/internal/config"
	"github.com/bryanchriswhite/PunchCam/internal/logger"
	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

// Manager handles overlay widgets and rendering. Widgets render in the
// order they were added.
type Manager struct {
	widgets []Widget
	mu      sync.RWMutex
	enabled bool
}

// NewManager creates a new overlay manager
func NewManager() *Manager {
	return &Manager{
		enabled: true,
	}
}

// AddWidget adds a widget on top of the existing ones
func (m *Manager) AddWidget(widget Widget) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.widgets {
		if w.ID() == widget.ID() {
			return fmt.Errorf("widget with ID %s already exists", widget.ID())
		}
	}

	m.widgets = append(m.widgets, widget)
	logger.WithComponent("overlay").Debug().
		Str("id", widget.ID()).
		Str("type", widget.Type()).
		Msg("Added widget")
	return nil
}

// RemoveWidget removes a widget from the overlay
func (m *Manager) RemoveWidget(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, w := range m.widgets {
		if w.ID() == id {
			m.widgets = append(m.widgets[:i], m.widgets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("widget with ID %s not found", id)
}

// GetWidget retrieves a widget by ID
func (m *Manager) GetWidget(id string) (Widget, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, w := range m.widgets {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// GetAllWidgets returns all widgets in render order
func (m *Manager) GetAllWidgets() []Widget {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]Widget(nil), m.widgets...)
}

// SetEnabled enables or disables the entire overlay
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// IsEnabled returns whether the overlay is enabled
func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Render draws every enabled widget onto the luma plane of pic, in place.
// A widget that fails is logged and skipped.
func (m *Manager) Render(pic *surface.Buffer, s Stamp) {
	if !m.IsEnabled() {
		return
	}
	widgets := m.GetAllWidgets()
	if len(widgets) == 0 {
		return
	}

	y, _, _ := pic.Planes()
	img := &image.Gray{
		Pix:    y,
		Stride: pic.Width(),
		Rect:   image.Rect(0, 0, pic.Width(), pic.Height()),
	}

	for _, widget := range widgets {
		if !widget.IsEnabled() {
			continue
		}
		if err := widget.Render(img, s); err != nil {
			logger.WithComponent("overlay").Warn().Err(err).
				Str("id", widget.ID()).
				Msg("Failed to render widget")
		}
	}
}

// CreateWidget creates a new widget instance from configuration
func (m *Manager) CreateWidget(cfg config.OverlayWidget) (Widget, error) {
	var widget Widget
	var err error

	switch cfg.Type {
	case config.WidgetText:
		widget, err = NewTextWidget(cfg)
	case config.WidgetTimestamp:
		widget, err = NewTimestampWidget(cfg)
	default:
		return nil, fmt.Errorf("unknown widget type: %s", cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s widget: %w", cfg.Type, err)
	}

	return widget, nil
}

// LoadFromConfig builds a manager holding the configured widgets
func LoadFromConfig(configs []config.OverlayWidget) (*Manager, error) {
	m := NewManager()
	for _, cfg := range configs {
		widget, err := m.CreateWidget(cfg)
		if err != nil {
			return nil, fmt.Errorf("overlay widget %s: %w", cfg.ID, err)
		}
		if err := m.AddWidget(widget); err != nil {
			return nil, err
		}
	}
	return m, nil
}
