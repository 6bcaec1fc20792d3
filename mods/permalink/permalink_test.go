package permalink

import (
	"testing"
	"time"

	"github.com/machbase/neo-polarmap/mods/mapview"
	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/machbase/neo-polarmap/mods/util/loop"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	at      time.Duration
	every   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() { t.stopped = true }

// fakeScheduler runs timers on a manual clock.
type fakeScheduler struct {
	now    time.Duration
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) loop.Stopper {
	t := &fakeTimer{at: s.now + d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Every(d time.Duration, fn func()) loop.Stopper {
	t := &fakeTimer{at: s.now + d, every: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	end := s.now + d
	for {
		var next *fakeTimer
		for _, t := range s.timers {
			if t.stopped || t.at > end {
				continue
			}
			if next == nil || t.at < next.at {
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

func (s *fakeScheduler) Pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type fakeTarget struct {
	view       mapview.View
	projection string
	handlers   map[mapview.HandlerID]func()
	seq        mapview.HandlerID
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		view:       mapview.View{Center: nums.LatLng{Lat: 90, Lng: 0}, Zoom: 4},
		projection: "ac_3573",
		handlers:   map[mapview.HandlerID]func(){},
	}
}

func (f *fakeTarget) View() mapview.View { return f.view }

func (f *fakeTarget) SetView(center nums.LatLng, zoom int) {
	v := mapview.View{Center: center, Zoom: zoom}
	if v == f.view {
		return
	}
	f.view = v
	for _, fn := range f.handlers {
		fn()
	}
}

func (f *fakeTarget) ProjectionID() string { return f.projection }

func (f *fakeTarget) SetProjection(id string) {
	f.projection = id
	for _, fn := range f.handlers {
		fn()
	}
}

func (f *fakeTarget) OnViewChanged(fn func()) mapview.HandlerID {
	f.seq++
	f.handlers[f.seq] = fn
	return f.seq
}

func (f *fakeTarget) OffViewChanged(id mapview.HandlerID) { delete(f.handlers, id) }

// pollingLocation has no change notification.
type pollingLocation struct {
	hash     string
	replaced []string
}

func (l *pollingLocation) Hash() string { return l.hash }

func (l *pollingLocation) Replace(hash string) {
	l.hash = hash
	l.replaced = append(l.replaced, hash)
}

type watchedLocation struct {
	pollingLocation
	handlers map[int]func()
	seq      int
}

func newWatchedLocation(hash string) *watchedLocation {
	return &watchedLocation{pollingLocation: pollingLocation{hash: hash}, handlers: map[int]func(){}}
}

func (l *watchedLocation) Replace(hash string) {
	changed := l.hash != hash
	l.pollingLocation.Replace(hash)
	if changed {
		l.fire()
	}
}

// Navigate changes the hash like the back button or an edit of the address bar.
func (l *watchedLocation) Navigate(hash string) {
	l.hash = hash
	l.fire()
}

func (l *watchedLocation) fire() {
	for _, fn := range l.handlers {
		fn()
	}
}

func (l *watchedLocation) OnHashChange(fn func()) int {
	l.seq++
	l.handlers[l.seq] = fn
	return l.seq
}

func (l *watchedLocation) OffHashChange(id int) { delete(l.handlers, id) }

func newHash(target Target, loc Location, sched Scheduler) *Hash {
	return New(target, loc, sched, WithMetrics(gometrics.NewRegistry()))
}

func TestHashDebounce(t *testing.T) {
	sched := &fakeScheduler{}
	target := newFakeTarget()
	loc := newWatchedLocation("")
	h := newHash(target, loc, sched)

	// empty hash is replaced by the current view
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, []string{"#ac_3573/4/90.00/0.00"}, loc.replaced)

	target.SetView(nums.LatLng{Lat: 80, Lng: 10}, 5)
	sched.Advance(3 * time.Millisecond)
	target.SetView(nums.LatLng{Lat: 81, Lng: 11}, 5)
	sched.Advance(3 * time.Millisecond)
	target.SetView(nums.LatLng{Lat: 82, Lng: 12}, 5)
	require.Len(t, loc.replaced, 1, "nothing written within the defer")

	sched.Advance(100 * time.Millisecond)
	require.Equal(t, []string{"#ac_3573/4/90.00/0.00", "#ac_3573/5/82.000/12.000"}, loc.replaced)
	require.Equal(t, "#ac_3573/5/82.000/12.000", h.LastHash())
	require.Equal(t, Idle, h.State())

	// our own write comes back as a hash change and is not applied again
	sched.Advance(time.Second)
	require.Len(t, loc.replaced, 2)
	require.Equal(t, mapview.View{Center: nums.LatLng{Lat: 82, Lng: 12}, Zoom: 5}, target.View())
}

func TestHashApplyExternal(t *testing.T) {
	sched := &fakeScheduler{}
	target := newFakeTarget()
	loc := newWatchedLocation("#ac_3575/6/75.5/12.25")
	h := newHash(target, loc, sched)

	require.Equal(t, "ac_3573", target.ProjectionID(), "hash is applied after the defer")
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, "ac_3575", target.ProjectionID())
	require.Equal(t, mapview.View{Center: nums.LatLng{Lat: 75.5, Lng: 12.25}, Zoom: 6}, target.View())
	require.Equal(t, Idle, h.State())

	// the view changes caused by applying the hash do not write it back
	sched.Advance(time.Second)
	require.Empty(t, loc.replaced)

	// back and forward navigation in a burst is applied once, with the last hash
	loc.Navigate("#ac_3571/3/70/170")
	sched.Advance(10 * time.Millisecond)
	loc.Navigate("#ac_3572/3/71/-150")
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, "ac_3572", target.ProjectionID())
	require.Equal(t, mapview.View{Center: nums.LatLng{Lat: 71, Lng: -150}, Zoom: 3}, target.View())
	require.Empty(t, loc.replaced)

	// an edit to a broken hash restores the current view
	loc.Navigate("#abc")
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, []string{"#ac_3572/3/71.00/-150.00"}, loc.replaced)
}

func TestHashPolling(t *testing.T) {
	sched := &fakeScheduler{}
	target := newFakeTarget()
	loc := &pollingLocation{hash: "#4/85/30"}
	newHash(target, loc, sched)

	sched.Advance(100 * time.Millisecond)
	require.Equal(t, mapview.View{Center: nums.LatLng{Lat: 85, Lng: 30}, Zoom: 4}, target.View())
	require.Equal(t, "ac_3573", target.ProjectionID(), "three field hash keeps the projection")

	loc.hash = "#ac_3576/2/88/100"
	sched.Advance(200 * time.Millisecond)
	require.Equal(t, "ac_3576", target.ProjectionID())
	require.Equal(t, mapview.View{Center: nums.LatLng{Lat: 88, Lng: 100}, Zoom: 2}, target.View())

	// polling an unchanged hash is quiet
	sched.Advance(time.Second)
	require.Empty(t, loc.replaced)
}

func TestHashRemove(t *testing.T) {
	sched := &fakeScheduler{}
	target := newFakeTarget()
	loc := newWatchedLocation("#ac_3575/6/75.5/12.25")
	h := newHash(target, loc, sched)
	require.Equal(t, 1, sched.Pending())

	h.Remove()
	h.Remove()
	require.Equal(t, 0, sched.Pending())
	require.Empty(t, target.handlers)
	require.Empty(t, loc.handlers)

	target.SetView(nums.LatLng{Lat: 10, Lng: 10}, 3)
	loc.Navigate("#ac_3571/3/70/170")
	sched.Advance(time.Second)
	require.Empty(t, loc.replaced)
	require.Equal(t, "ac_3573", target.ProjectionID())

	pl := &pollingLocation{}
	h = newHash(target, pl, sched)
	h.Remove()
	require.Equal(t, 0, sched.Pending())
}

func TestMemoryLocation(t *testing.T) {
	sched := &fakeScheduler{}
	target := newFakeTarget()
	written := []string{}
	loc := NewMemoryLocation("#ac_3571/5/80/170", func(hash string) { written = append(written, hash) })
	h := newHash(target, loc, sched)

	sched.Advance(100 * time.Millisecond)
	require.Equal(t, "ac_3571", target.ProjectionID())
	require.Empty(t, written)

	target.SetView(nums.LatLng{Lat: 79, Lng: 171}, 5)
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, []string{"#ac_3571/5/79.000/171.000"}, written)
	require.Equal(t, "#ac_3571/5/79.000/171.000", loc.Hash())

	loc.Navigate("#ac_3574/2/60/-40")
	sched.Advance(100 * time.Millisecond)
	require.Equal(t, "ac_3574", target.ProjectionID())

	h.Remove()
	require.Empty(t, loc.handlers)
}
