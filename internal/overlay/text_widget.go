package overlay

import (
	"fmt"
	"image"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/bryanchriswhite/PunchCam/internal/config"
)

const (
	textLevel       = 235 // studio white
	backgroundLevel = 16  // studio black
)

// TextWidget displays a fixed label
type TextWidget struct {
	*BaseWidget
	text       string
	fontSize   int
	padding    int
	background bool
}

// NewTextWidget creates a new text widget
func NewTextWidget(cfg config.OverlayWidget) (*TextWidget, error) {
	if cfg.Text == "" {
		return nil, fmt.Errorf("text widget requires non-empty text")
	}
	w := newText(cfg)
	w.text = cfg.Text
	return w, nil
}

func newText(cfg config.OverlayWidget) *TextWidget {
	opacity := cfg.Opacity
	if opacity == 0 {
		opacity = 1
	}
	w := &TextWidget{
		BaseWidget: NewBaseWidget(cfg.ID, cfg.X, cfg.Y, opacity),
		fontSize:   13, // basicfont size
		padding:    4,
		background: cfg.Background,
	}
	w.SetEnabled(cfg.Enabled)
	return w
}

// Type returns the widget type
func (w *TextWidget) Type() string {
	return config.WidgetText
}

// Render draws the label
func (w *TextWidget) Render(img *image.Gray, _ Stamp) error {
	return w.draw(img, w.text)
}

// SetText updates the text content
func (w *TextWidget) SetText(text string) {
	w.text = text
}

// GetText returns the current text
func (w *TextWidget) GetText() string {
	return w.text
}

func (w *TextWidget) draw(img *image.Gray, text string) error {
	if text == "" {
		return nil
	}
	face := basicfont.Face7x13

	textWidthPx := font.MeasureString(face, text).Ceil()
	widgetWidth := textWidthPx + w.padding*2
	widgetHeight := w.fontSize + w.padding*2

	if w.background {
		DrawRectangle(img, w.x, w.y, widgetWidth, widgetHeight, backgroundLevel, w.opacity*0.6)
	}

	// Glyphs are drawn into a coverage mask, then blended onto the frame
	mask := image.NewAlpha(image.Rect(0, 0, textWidthPx, w.fontSize))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: fixed.I(face.Ascent)},
	}
	d.DrawString(text)

	BlendMask(img, mask, w.x+w.padding, w.y+w.padding, textLevel, w.opacity)
	return nil
}

// TimestampWidget displays the capture time of the frame
type TimestampWidget struct {
	*TextWidget
	layout string
}

// NewTimestampWidget creates a clock widget. An empty layout means RFC 3339
// with milliseconds.
func NewTimestampWidget(cfg config.OverlayWidget) (*TimestampWidget, error) {
	layout := cfg.Layout
	if layout == "" {
		layout = "2006-01-02T15:04:05.000Z07:00"
	}
	if time.Unix(0, 0).Format(layout) == layout {
		return nil, fmt.Errorf("timestamp layout %q has no time fields", layout)
	}
	return &TimestampWidget{TextWidget: newText(cfg), layout: layout}, nil
}

// Type returns the widget type
func (w *TimestampWidget) Type() string {
	return config.WidgetTimestamp
}

// Render draws the capture time of s
func (w *TimestampWidget) Render(img *image.Gray, s Stamp) error {
	return w.draw(img, s.Captured.Format(w.layout))
}

// Text returns what Render would draw for s
func (w *TimestampWidget) Text(s Stamp) string {
	return s.Captured.Format(w.layout)
}
