package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/PunchCam/internal/config"
	"github.com/bryanchriswhite/PunchCam/internal/surface"
)

func countAbove(pix []byte, level byte) int {
	n := 0
	for _, p := range pix {
		if p > level {
			n++
		}
	}
	return n
}

func clock(id string) config.OverlayWidget {
	return config.OverlayWidget{
		ID: id, Type: config.WidgetTimestamp, Enabled: true,
		X: 4, Y: 4, Layout: "15:04:05", Opacity: 1,
	}
}

func TestTimestampDrawsIntoLumaOnly(t *testing.T) {
	m, err := LoadFromConfig([]config.OverlayWidget{clock("clock")})
	require.NoError(t, err)

	pic := surface.NewBlack(surface.YUV420P, 160, 64)
	_, u, v := pic.Planes()
	wantU := append([]byte(nil), u...)
	wantV := append([]byte(nil), v...)

	m.Render(pic, Stamp{Seq: 1, Captured: time.Date(2024, 5, 1, 12, 34, 56, 0, time.UTC)})

	y, u, v := pic.Planes()
	assert.Greater(t, countAbove(y, 128), 20, "glyphs are drawn")
	assert.Zero(t, countAbove(y[:4*160], 0), "nothing above the widget")
	assert.Equal(t, wantU, u)
	assert.Equal(t, wantV, v)
}

func TestTimestampText(t *testing.T) {
	w, err := NewTimestampWidget(clock("c"))
	require.NoError(t, err)
	ts := time.Date(2024, 5, 1, 12, 34, 56, 0, time.UTC)
	assert.Equal(t, "12:34:56", w.Text(Stamp{Captured: ts}))

	_, err = NewTimestampWidget(config.OverlayWidget{ID: "bad", Layout: "no fields"})
	require.Error(t, err)
}

func TestBackgroundDarkensBox(t *testing.T) {
	cfg := config.OverlayWidget{ID: "label", Type: config.WidgetText, Enabled: true, Text: "cam1", Opacity: 1, Background: true}
	w, err := NewTextWidget(cfg)
	require.NoError(t, err)

	pic := surface.NewBlack(surface.Luma, 64, 32)
	y, _, _ := pic.Planes()
	for i := range y {
		y[i] = 200
	}
	m := NewManager()
	require.NoError(t, m.AddWidget(w))
	m.Render(pic, Stamp{})

	assert.Less(t, y[0], byte(200), "box corner is darkened")
	assert.Equal(t, byte(200), y[len(y)-1], "outside the box is untouched")
}

func TestDisabledWidgetsAreSkipped(t *testing.T) {
	cfg := clock("clock")
	cfg.Enabled = false
	m, err := LoadFromConfig([]config.OverlayWidget{cfg})
	require.NoError(t, err)

	pic := surface.NewBlack(surface.Luma, 160, 64)
	m.Render(pic, Stamp{Captured: time.Now()})
	assert.Zero(t, countAbove(pic.Bytes(), 0))

	m2, err := LoadFromConfig([]config.OverlayWidget{clock("clock")})
	require.NoError(t, err)
	m2.SetEnabled(false)
	m2.Render(pic, Stamp{Captured: time.Now()})
	assert.Zero(t, countAbove(pic.Bytes(), 0))
}

func TestWidgetsClipAtEdges(t *testing.T) {
	cfg := clock("clock")
	cfg.X, cfg.Y = 150, 60
	m, err := LoadFromConfig([]config.OverlayWidget{cfg})
	require.NoError(t, err)

	pic := surface.NewBlack(surface.Luma, 160, 64)
	assert.NotPanics(t, func() { m.Render(pic, Stamp{Captured: time.Now()}) })
}

func TestManagerWidgets(t *testing.T) {
	m := NewManager()
	a, err := NewTimestampWidget(clock("a"))
	require.NoError(t, err)
	b, err := NewTextWidget(config.OverlayWidget{ID: "b", Type: config.WidgetText, Text: "x"})
	require.NoError(t, err)

	require.NoError(t, m.AddWidget(a))
	require.NoError(t, m.AddWidget(b))
	require.Error(t, m.AddWidget(a))

	all := m.GetAllWidgets()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID())
	assert.Equal(t, "b", all[1].ID())

	got, ok := m.GetWidget("b")
	require.True(t, ok)
	assert.Equal(t, config.WidgetText, got.Type())

	require.NoError(t, m.RemoveWidget("a"))
	require.Error(t, m.RemoveWidget("a"))
	assert.Len(t, m.GetAllWidgets(), 1)

	_, err = m.CreateWidget(config.OverlayWidget{ID: "g", Type: "github-actions"})
	require.Error(t, err)
	_, err = NewTextWidget(config.OverlayWidget{ID: "empty", Type: config.WidgetText})
	require.Error(t, err)
}
