package mapview

import (
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/machbase/neo-polarmap/mods/crs"
	"github.com/machbase/neo-polarmap/mods/layer"
	"github.com/machbase/neo-polarmap/mods/logging"
	"github.com/machbase/neo-polarmap/mods/nums"
)

type View struct {
	Center nums.LatLng `json:"center"`
	Zoom   int         `json:"zoom"`
}

func (v View) String() string {
	return fmt.Sprintf("%s@%d", v.Center.String(), v.Zoom)
}

type ViewOptions struct {
	// Reset re-renders at once instead of animating the transition.
	Reset bool
}

// Control is a widget placed on the map chrome.
type Control interface {
	Position() string
	HTML() string
}

// Map is a headless map. It holds what a rendering engine would hold,
// the CRS, the attached layers, the view and the max bounds, and fires
// events on every change. A Map is not safe for concurrent use, it is
// meant to be driven from a single event loop.
type Map struct {
	id        string
	crs       *crs.CRS
	layers    []layer.Layer
	view      View
	maxBounds *nums.LatLngBounds
	controls  []Control
	focused   bool

	handlers map[EventType][]handlerEntry
	nextID   HandlerID
	log      logging.Log
}

type Option func(*Map)

func WithID(id string) Option {
	return func(m *Map) { m.id = id }
}

func WithCRS(c *crs.CRS) Option {
	return func(m *Map) { m.crs = c }
}

func WithView(center nums.LatLng, zoom int) Option {
	return func(m *Map) { m.view = View{Center: center, Zoom: zoom} }
}

func WithLogger(l logging.Log) Option {
	return func(m *Map) { m.log = l }
}

func New(opts ...Option) *Map {
	m := &Map{
		crs:      crs.EPSG3857,
		handlers: map[EventType][]handlerEntry{},
	}
	for _, o := range opts {
		o(m)
	}
	if m.log == nil {
		m.log = logging.GetLog("mapview")
	}
	return m
}

func (m *Map) ID() string { return m.id }

func (m *Map) CRS() *crs.CRS { return m.crs }

// SetCRS changes the coordinate system, attached layers are not touched.
func (m *Map) SetCRS(c *crs.CRS) {
	if c == nil {
		return
	}
	m.crs = c
	m.fire(&Event{Type: EventCRSChange, CRS: c})
}

// AttachLayer adds l on top of the attached layers.
// Reprojectable layers, nested ones included, are projected with the
// current CRS right away.
func (m *Map) AttachLayer(l layer.Layer) {
	if l == nil || m.HasLayer(l) {
		return
	}
	m.layers = append(m.layers, l)
	layer.Walk(l, func(ll layer.Layer) bool {
		if rp, ok := ll.(layer.Reprojector); ok {
			rp.Reproject(m.crs, m.view.Zoom)
		}
		return true
	})
	m.fire(&Event{Type: EventLayerAdd, Layer: l})
}

func (m *Map) DetachLayer(l layer.Layer) {
	idx := slices.Index(m.layers, l)
	if idx < 0 {
		return
	}
	m.layers = slices.Delete(m.layers, idx, idx+1)
	m.fire(&Event{Type: EventLayerRemove, Layer: l})
}

func (m *Map) HasLayer(l layer.Layer) bool {
	return slices.Contains(m.layers, l)
}

// Layers yields a snapshot of the attached layers in attach order,
// handlers may attach or detach layers during the iteration.
func (m *Map) Layers() iter.Seq[layer.Layer] {
	snapshot := slices.Clone(m.layers)
	return func(yield func(layer.Layer) bool) {
		for _, l := range snapshot {
			if !yield(l) {
				return
			}
		}
	}
}

func (m *Map) View() View {
	return m.view
}

// SetView moves the map. The zoom is clamped to the zoom range of the CRS
// and the center is kept inside the max bounds.
func (m *Map) SetView(center nums.LatLng, zoom int, opts ViewOptions) {
	if !center.IsValid() {
		m.log.Debugf("%s ignore invalid center %v", m.id, center)
		return
	}
	zoom = max(m.crs.MinZoom(), min(m.crs.MaxZoom(), zoom))
	center = m.clampCenter(center)
	changed := m.view.Zoom != zoom || m.view.Center != center
	m.view = View{Center: center, Zoom: zoom}
	if opts.Reset {
		m.fire(&Event{Type: EventViewReset, View: m.view})
	}
	if changed || opts.Reset {
		m.fire(&Event{Type: EventViewChanged, View: m.view})
	}
}

func (m *Map) MaxBounds() *nums.LatLngBounds {
	return m.maxBounds
}

// SetMaxBounds restricts the center of the view, nil or empty bounds lift the restriction.
func (m *Map) SetMaxBounds(b *nums.LatLngBounds) {
	if b.IsEmpty() {
		m.maxBounds = nil
		return
	}
	m.maxBounds = b
	if center := m.clampCenter(m.view.Center); center != m.view.Center {
		m.SetView(center, m.view.Zoom, ViewOptions{})
	}
}

func (m *Map) clampCenter(c nums.LatLng) nums.LatLng {
	if m.maxBounds.IsEmpty() || m.maxBounds.Contains(c) {
		return c
	}
	return nums.LatLng{
		Lat: math.Max(m.maxBounds.SouthWest.Lat, math.Min(m.maxBounds.NorthEast.Lat, c.Lat)),
		Lng: math.Max(m.maxBounds.SouthWest.Lng, math.Min(m.maxBounds.NorthEast.Lng, c.Lng)),
	}
}

// PixelCenter returns the center of the view in pixels of the current CRS.
func (m *Map) PixelCenter() nums.Point {
	return m.crs.LatLngToPoint(m.view.Center, m.view.Zoom)
}

func (m *Map) AddControl(c Control) {
	m.controls = append(m.controls, c)
}

func (m *Map) Controls() []Control {
	return m.controls
}

// Focus gives the keyboard focus back to the map.
func (m *Map) Focus() {
	m.focused = true
}

func (m *Map) Blur() {
	m.focused = false
}

func (m *Map) Focused() bool {
	return m.focused
}

// On registers fn for the events of type t, the returned id unregisters it.
func (m *Map) On(t EventType, fn Handler) HandlerID {
	m.nextID++
	m.handlers[t] = append(m.handlers[t], handlerEntry{id: m.nextID, fn: fn})
	return m.nextID
}

func (m *Map) Off(t EventType, id HandlerID) {
	m.handlers[t] = slices.DeleteFunc(m.handlers[t], func(h handlerEntry) bool { return h.id == id })
}

// Fire delivers an externally produced event, location and touch events for example.
func (m *Map) Fire(ev *Event) {
	m.fire(ev)
}

func (m *Map) fire(ev *Event) {
	for _, h := range slices.Clone(m.handlers[ev.Type]) {
		h.fn(ev)
		if ev.stopped {
			return
		}
	}
}
