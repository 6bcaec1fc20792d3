package rotation

import (
	"testing"

	"github.com/machbase/neo-polarmap/mods/mapview"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	controls []mapview.Control
	focused  int
}

func (h *fakeHost) AddControl(c mapview.Control) { h.controls = append(h.controls, c) }
func (h *fakeHost) Focus()                       { h.focused++ }

func TestControl(t *testing.T) {
	cw, ccw := 0, 0
	host := &fakeHost{}
	ctl := New(Options{
		OnRotateCW:  func() { cw++ },
		OnRotateCCW: func() { ccw++ },
	}).AddTo(host)

	require.Len(t, host.controls, 1)
	require.Equal(t, "topright", ctl.Position())
	require.Equal(t, "leaflet-control-rotation-cw", ctl.CW().ClassName)
	require.Equal(t, "leaflet-control-rotation-ccw", ctl.CCW().ClassName)
	require.Equal(t, "Rotate Counter-Clockwise", ctl.CCW().Title)

	ev := &mapview.Event{}
	ctl.CW().Click(ev)
	require.True(t, ev.Stopped())
	ctl.CCW().Click(nil)
	ctl.CCW().Click(nil)
	require.Equal(t, 1, cw)
	require.Equal(t, 2, ccw)
	require.Equal(t, 3, host.focused)

	require.Equal(t, `<div class="leaflet-control-rotation leaflet-bar">`+
		`<a class="leaflet-control-rotation-cw" href="#" title="Rotate Clockwise" role="button">↻</a>`+
		`<a class="leaflet-control-rotation-ccw" href="#" title="Rotate Counter-Clockwise" role="button">↺</a>`+
		`</div>`, ctl.HTML())
}

func TestControlWithoutCallbacks(t *testing.T) {
	host := &fakeHost{}
	ctl := New(Options{Position: "bottomleft", CWTitle: `"cw"`}).AddTo(host)
	ctl.CW().Click(&mapview.Event{})
	require.Equal(t, 1, host.focused)
	require.Equal(t, "bottomleft", ctl.Position())
	require.Contains(t, ctl.CW().HTML(), `title="&#34;cw&#34;"`)
}

func TestGestureTracker(t *testing.T) {
	var got []Direction
	g := NewGestureTracker(
		func() { got = append(got, Clockwise) },
		func() { got = append(got, CounterClockwise) })

	tests := []struct {
		name   string
		moves  []float64
		end    float64
		expect Direction
	}{
		{"no samples", nil, 90, None},
		{"below threshold", []float64{0, 10, 20}, 45, None},
		{"decreasing samples", []float64{0, -20, -60}, 60, CounterClockwise},
		{"increasing samples", []float64{0, 20, 60}, -60, Clockwise},
		{"flat samples", []float64{30, 30}, 50, Clockwise},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g.TouchStart()
			for _, m := range tc.moves {
				g.TouchMove(m)
			}
			require.Equal(t, tc.expect, g.TouchEnd(tc.end))
		})
	}
	require.Equal(t, []Direction{CounterClockwise, Clockwise, Clockwise}, got)
}

func TestGestureTrackerRing(t *testing.T) {
	g := NewGestureTracker(nil, nil)
	g.TouchStart()
	for i := range 15 {
		g.TouchMove(float64(i))
	}
	require.Equal(t, []float64{5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, g.Samples())
	require.Equal(t, Clockwise, g.TouchEnd(80))
	require.Equal(t, "cw", Clockwise.String())

	g.TouchStart()
	require.Empty(t, g.Samples())
	require.Equal(t, None, g.TouchEnd(80))
}
