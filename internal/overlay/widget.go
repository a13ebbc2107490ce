package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"time"
)

// Stamp is the frame metadata a widget may render
type Stamp struct {
	Seq      uint64
	Captured time.Time
}

// Widget is something drawn onto the luma plane of an emitted frame
type Widget interface {
	// ID returns the unique identifier for this widget instance
	ID() string

	// Type returns the widget type name
	Type() string

	// Render draws the widget onto img at the configured position
	Render(img *image.Gray, s Stamp) error

	// IsEnabled returns whether the widget should be rendered
	IsEnabled() bool

	// SetEnabled sets whether the widget should be rendered
	SetEnabled(enabled bool)
}

// BaseWidget provides common functionality for all widgets
type BaseWidget struct {
	id      string
	enabled bool
	x       int
	y       int
	opacity float64 // 0.0 to 1.0
}

// NewBaseWidget creates a new base widget
func NewBaseWidget(id string, x, y int, opacity float64) *BaseWidget {
	w := &BaseWidget{
		id:      id,
		enabled: true,
		x:       x,
		y:       y,
	}
	w.SetOpacity(opacity)
	return w
}

// ID returns the widget's unique identifier
func (w *BaseWidget) ID() string {
	return w.id
}

// IsEnabled returns whether the widget should be rendered
func (w *BaseWidget) IsEnabled() bool {
	return w.enabled
}

// SetEnabled sets whether the widget should be rendered
func (w *BaseWidget) SetEnabled(enabled bool) {
	w.enabled = enabled
}

// GetPosition returns the widget's position
func (w *BaseWidget) GetPosition() (int, int) {
	return w.x, w.y
}

// SetOpacity sets the widget's opacity (0.0 to 1.0)
func (w *BaseWidget) SetOpacity(opacity float64) {
	if opacity < 0.0 {
		opacity = 0.0
	}
	if opacity > 1.0 {
		opacity = 1.0
	}
	w.opacity = opacity
}

// BlendMask paints level onto dst through mask, placed at (x, y), with the
// mask further scaled by opacity. Parts outside dst are clipped.
func BlendMask(dst *image.Gray, mask *image.Alpha, x, y int, level uint8, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity < 1 {
		scaled := image.NewAlpha(mask.Bounds())
		for i, a := range mask.Pix {
			scaled.Pix[i] = uint8(float64(a)*opacity + 0.5)
		}
		mask = scaled
	}
	r := mask.Bounds().Sub(mask.Bounds().Min).Add(image.Pt(x, y))
	draw.DrawMask(dst, r, image.NewUniform(color.Gray{Y: level}), image.Point{}, mask, mask.Bounds().Min, draw.Over)
}

// DrawRectangle fills a rectangle with level at the given opacity
func DrawRectangle(dst *image.Gray, x, y, width, height int, level uint8, opacity float64) {
	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	for i := range mask.Pix {
		mask.Pix[i] = 0xFF
	}
	BlendMask(dst, mask, x, y, level, opacity)
}
