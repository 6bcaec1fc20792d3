package polarmap

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/machbase/neo-polarmap/mods/layer"
	"github.com/machbase/neo-polarmap/mods/mapview"
	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/machbase/neo-polarmap/mods/projection"
	"github.com/machbase/neo-polarmap/mods/util/loop"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	at      time.Duration
	every   time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() { t.stopped = true }

type manualScheduler struct {
	now    time.Duration
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) loop.Stopper {
	t := &manualTimer{at: s.now + d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) Every(d time.Duration, fn func()) loop.Stopper {
	t := &manualTimer{at: s.now + d, every: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) Advance(d time.Duration) {
	end := s.now + d
	for {
		var next *manualTimer
		for _, t := range s.timers {
			if !t.stopped && t.at <= end && (next == nil || t.at < next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		s.now = next.at
		if next.every > 0 {
			next.at += next.every
		} else {
			next.stopped = true
		}
		next.fn()
	}
	s.now = end
}

func (s *manualScheduler) Pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func newPolarMap(t *testing.T, mod func(*Options)) (*PolarMap, *manualScheduler) {
	t.Helper()
	opts := DefaultOptions()
	if mod != nil {
		mod(&opts)
	}
	sched := &manualScheduler{}
	pm, err := New("test", projection.DefaultRegistry(), sched, opts)
	require.NoError(t, err)
	return pm, sched
}

func TestNew(t *testing.T) {
	pm, _ := newPolarMap(t, nil)
	require.Equal(t, "ac_3573", pm.BaseLayer().ID)
	require.Equal(t, "EPSG:3573", pm.Map.CRS().Code)
	require.Equal(t, mapview.View{Center: nums.LatLng{Lat: 90, Lng: 0}, Zoom: 4}, pm.Map.View())
	require.Len(t, pm.Map.Controls(), 2)

	st := pm.State()
	require.Equal(t, []string{"tile:ac_3573"}, st.Layers)
	require.Nil(t, st.Location)

	_, err := New("x", projection.DefaultRegistry(), &manualScheduler{}, Options{DefaultProjection: "nowhere"})
	require.ErrorIs(t, err, projection.ErrNotFound)
}

func TestRotate(t *testing.T) {
	pm, _ := newPolarMap(t, func(o *Options) { o.Permalink = false })

	pm.RotationControl().CW().Click(&mapview.Event{})
	require.Equal(t, "ac_3574", pm.BaseLayer().ID)
	require.True(t, pm.Map.Focused())
	pm.RotationControl().CCW().Click(&mapview.Event{})
	pm.RotationControl().CCW().Click(&mapview.Event{})
	require.Equal(t, "ac_3572", pm.BaseLayer().ID)

	// a counter clockwise twist
	require.NoError(t, pm.Touch(TouchStart, 0))
	for _, r := range []float64{0, -20, -60} {
		require.NoError(t, pm.Touch(TouchMove, r))
	}
	require.NoError(t, pm.Touch(TouchEnd, 60))
	require.Equal(t, "ac_3571", pm.BaseLayer().ID)

	// too small to rotate
	require.NoError(t, pm.Touch(TouchStart, 0))
	require.NoError(t, pm.Touch(TouchMove, 10))
	require.NoError(t, pm.Touch(TouchEnd, 20))
	require.Equal(t, "ac_3571", pm.BaseLayer().ID)
	require.Error(t, pm.Touch("pinch", 0))
}

func TestLocate(t *testing.T) {
	pm, _ := newPolarMap(t, nil)
	require.ErrorIs(t, pm.LocationFound(nums.LatLng{Lat: 64.8, Lng: -147.7}, 30), ErrLocateDisabled)

	pm, _ = newPolarMap(t, func(o *Options) { o.Locate = true })
	require.NoError(t, pm.LocationFound(nums.LatLng{Lat: 64.8, Lng: -147.7}, 30))
	require.Equal(t, "ac_3572", pm.BaseLayer().ID)
	st := pm.State()
	require.Equal(t, &nums.LatLng{Lat: 64.8, Lng: -147.7}, st.Location)
	require.Equal(t, 30.0, st.Accuracy)
	require.Contains(t, st.Layers, userLocationID)

	require.NoError(t, pm.LocationFound(nums.LatLng{Lat: 59.9, Lng: 10.7}, 15))
	require.Equal(t, "ac_3575", pm.BaseLayer().ID)
	count := 0
	for _, id := range pm.State().Layers {
		if id == userLocationID {
			count++
		}
	}
	require.Equal(t, 1, count, "the location circle is reused")

	require.NoError(t, pm.LocationError(errors.New("denied")))
	require.Error(t, pm.LocationFound(nums.LatLng{Lat: math.NaN(), Lng: 0}, 1))
}

func TestStateCenterTile(t *testing.T) {
	pm, _ := newPolarMap(t, nil)
	require.NoError(t, pm.SetView(nums.LatLng{Lat: 70, Lng: -90}, 4))

	st := pm.State()
	require.NotNil(t, st.CenterTile)
	require.Equal(t, 4, st.CenterTile.Z)
	require.Equal(t, 8, st.CenterTile.X)
	require.Equal(t, 8, st.CenterTile.Y)
	require.True(t, strings.HasSuffix(st.CenterTile.URL, ".tiles.arcticconnect.org/osm_3573/4/8/8.png"), st.CenterTile.URL)
}

func TestPermalink(t *testing.T) {
	pm, sched := newPolarMap(t, func(o *Options) { o.Hash = "#ac_3575/6/75.5/12.25" })
	require.Equal(t, "ac_3573", pm.BaseLayer().ID)

	sched.Advance(100 * time.Millisecond)
	require.Equal(t, "ac_3575", pm.BaseLayer().ID)
	require.Equal(t, mapview.View{Center: nums.LatLng{Lat: 75.5, Lng: 12.25}, Zoom: 6}, pm.Map.View())
	require.Equal(t, "#ac_3575/6/75.5/12.25", pm.Hash())

	require.NoError(t, pm.SetView(nums.LatLng{Lat: 80, Lng: 20}, 5))
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, "#ac_3575/5/80.000/20.000", pm.Hash())

	pm.RotateCW()
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, "#ac_3576/5/80.000/20.000", pm.Hash())

	require.NoError(t, pm.Navigate("#ac_3571/3/70/170"))
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, "ac_3571", pm.BaseLayer().ID)
	require.Equal(t, mapview.View{Center: nums.LatLng{Lat: 70, Lng: 170}, Zoom: 3}, pm.Map.View())

	noHash, _ := newPolarMap(t, func(o *Options) { o.Permalink = false })
	require.Error(t, noHash.Navigate("#1/2/3"))
	require.Equal(t, "", noHash.Hash())
}

func TestSubscribe(t *testing.T) {
	pm, sched := newPolarMap(t, nil)
	sched.Advance(100 * time.Millisecond)

	states := []State{}
	cancel := pm.Subscribe(func(st State) { states = append(states, st) })

	pm.RotateCW()
	require.Len(t, states, 1, "one state per switch")
	require.Equal(t, "ac_3574", states[0].Projection)
	require.Equal(t, "EPSG:3574", states[0].CRS)

	sched.Advance(100 * time.Millisecond)
	require.Len(t, states, 2, "the new hash")
	require.Equal(t, "#ac_3574/4/90.00/0.00", states[1].Hash)

	cancel()
	pm.RotateCW()
	require.Len(t, states, 2)
}

func TestOverlays(t *testing.T) {
	pm, _ := newPolarMap(t, func(o *Options) { o.Permalink = false })
	v := layer.NewVector("route", orb.LineString{{10, 60}, {20, 70}}, nil)
	pm.AddLayer(v, "Route")
	pm.AddLayer(v, "Route")
	hidden := layer.NewVector("hidden", orb.Point{0, 80}, nil)
	pm.AddLayer(hidden, "")

	require.Len(t, pm.Overlays(), 1)
	html := pm.layersCtl.HTML()
	require.Contains(t, html, `value="ac_3573" checked`)
	require.Contains(t, html, `Europe (EPSG:3575)`)
	require.Contains(t, html, `value="route" checked`)
	require.False(t, strings.Contains(html, "hidden"))

	pm.RotateCW()
	require.NotNil(t, v.Projected())
	pm.RemoveLayer(v)
	require.Empty(t, pm.Overlays())
	require.False(t, pm.Map.HasLayer(v))
}

func TestClose(t *testing.T) {
	pm, sched := newPolarMap(t, nil)
	require.Equal(t, 1, sched.Pending())
	pm.Close()
	pm.Close()
	require.Equal(t, 0, sched.Pending())
	require.True(t, pm.Closed())
	require.False(t, pm.RotateCW())
	require.ErrorIs(t, pm.SetBaseLayer("ac_3571"), ErrClosed)
	require.ErrorIs(t, pm.SetView(nums.LatLng{Lat: 80, Lng: 0}, 3), ErrClosed)
	require.ErrorIs(t, pm.Navigate("#1/2/3"), ErrClosed)
	require.Equal(t, "ac_3573", pm.BaseLayer().ID)
}
