package polarmap

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/machbase/neo-polarmap/mods/controller"
	"github.com/machbase/neo-polarmap/mods/layer"
	"github.com/machbase/neo-polarmap/mods/logging"
	"github.com/machbase/neo-polarmap/mods/mapview"
	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/machbase/neo-polarmap/mods/permalink"
	"github.com/machbase/neo-polarmap/mods/projection"
	"github.com/machbase/neo-polarmap/mods/rotation"
)

const (
	DefaultProjection = "ac_3573"
	userLocationID    = "user-location"
)

var ErrLocateDisabled = errors.New("locate is disabled")
var ErrClosed = errors.New("polar map closed")

type Options struct {
	Permalink         bool
	Locate            bool
	Center            nums.LatLng
	Zoom              int
	DefaultProjection string
	// Hash is the initial permalink, empty starts at Center and Zoom.
	Hash         string
	ChangeDefer  time.Duration
	PollInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		Permalink:         true,
		Center:            nums.LatLng{Lat: 90, Lng: 0},
		Zoom:              4,
		DefaultProjection: DefaultProjection,
		ChangeDefer:       permalink.DefaultChangeDefer,
		PollInterval:      permalink.DefaultPollInterval,
	}
}

type Overlay struct {
	Layer layer.Layer
	Name  string
}

// PolarMap is a map with the polar projections, the rotation control,
// touch rotation, the permalink and the user location wired together.
// It must be used from the goroutine that runs the scheduler jobs.
type PolarMap struct {
	id       string
	opts     Options
	log      logging.Log
	registry *projection.Registry

	Map        *mapview.Map
	controller *controller.Controller
	rotation   *rotation.Control
	layersCtl  *LayersControl
	gestures   *rotation.GestureTracker
	hash       *permalink.Hash
	location   *permalink.MemoryLocation

	userLocation *layer.Vector
	located      nums.LatLng
	accuracy     float64
	overlays     []Overlay

	handlers    []handlerRef
	subscribers map[int]func(State)
	subSeq      int
	closed      bool
}

type handlerRef struct {
	typ mapview.EventType
	id  mapview.HandlerID
}

// New builds a polar map showing the default projection of opts.
func New(id string, registry *projection.Registry, sched permalink.Scheduler, opts Options) (*PolarMap, error) {
	if registry == nil {
		return nil, projection.ErrEmptyRegistry
	}
	if opts.DefaultProjection == "" {
		opts.DefaultProjection = DefaultProjection
	}
	def, err := registry.Get(opts.DefaultProjection)
	if err != nil {
		return nil, err
	}
	pm := &PolarMap{
		id:          id,
		opts:        opts,
		log:         logging.GetLog("polarmap"),
		registry:    registry,
		subscribers: map[int]func(State){},
	}
	pm.Map = mapview.New(
		mapview.WithID(id),
		mapview.WithView(opts.Center, opts.Zoom),
	)
	pm.controller = controller.New(pm.Map, registry)
	if err := pm.controller.SwitchToID(def.ID); err != nil {
		return nil, err
	}
	pm.controller.OnSwitch(func(prev, next *projection.Definition) {
		pm.notify()
	})

	pm.layersCtl = newLayersControl(pm)
	pm.Map.AddControl(pm.layersCtl)
	pm.rotation = rotation.New(rotation.Options{
		OnRotateCW:  func() { pm.RotateCW() },
		OnRotateCCW: func() { pm.RotateCCW() },
	}).AddTo(pm.Map)

	pm.gestures = rotation.NewGestureTracker(func() { pm.RotateCW() }, func() { pm.RotateCCW() })
	pm.on(mapview.EventTouchStart, func(ev *mapview.Event) { pm.gestures.TouchStart() })
	pm.on(mapview.EventTouchMove, func(ev *mapview.Event) { pm.gestures.TouchMove(ev.Rotation) })
	pm.on(mapview.EventTouchEnd, func(ev *mapview.Event) { pm.gestures.TouchEnd(ev.Rotation) })

	for _, typ := range []mapview.EventType{mapview.EventViewChanged, mapview.EventLayerAdd, mapview.EventLayerRemove} {
		pm.on(typ, func(ev *mapview.Event) {
			if !pm.controller.IsSwitching() {
				pm.notify()
			}
		})
	}

	if opts.Locate {
		pm.on(mapview.EventLocationFound, pm.onLocationFound)
		pm.on(mapview.EventLocationError, func(ev *mapview.Event) {
			pm.log.Warnf("%s location detection failed, %v", pm.id, ev.Err)
		})
	}

	if opts.Permalink {
		pm.location = permalink.NewMemoryLocation(opts.Hash, func(string) { pm.notify() })
		pm.hash = permalink.New(hashTarget{pm}, pm.location, sched,
			permalink.WithChangeDefer(opts.ChangeDefer),
			permalink.WithPollInterval(opts.PollInterval))
	}
	return pm, nil
}

func (pm *PolarMap) on(typ mapview.EventType, fn mapview.Handler) {
	pm.handlers = append(pm.handlers, handlerRef{typ: typ, id: pm.Map.On(typ, fn)})
}

func (pm *PolarMap) ID() string { return pm.id }

func (pm *PolarMap) Registry() *projection.Registry { return pm.registry }

func (pm *PolarMap) Controller() *controller.Controller { return pm.controller }

func (pm *PolarMap) RotationControl() *rotation.Control { return pm.rotation }

// BaseLayer returns the definition of the shown projection.
func (pm *PolarMap) BaseLayer() *projection.Definition {
	return pm.controller.Active()
}

func (pm *PolarMap) RotateCW() bool {
	if pm.closed {
		return false
	}
	return pm.controller.RotateClockwise()
}

func (pm *PolarMap) RotateCCW() bool {
	if pm.closed {
		return false
	}
	return pm.controller.RotateCounterClockwise()
}

// SetBaseLayer switches to the projection registered as id.
func (pm *PolarMap) SetBaseLayer(id string) error {
	if pm.closed {
		return ErrClosed
	}
	return pm.controller.SwitchToID(id)
}

// SetView moves the map like a user pan or zoom.
func (pm *PolarMap) SetView(center nums.LatLng, zoom int) error {
	if pm.closed {
		return ErrClosed
	}
	if !center.IsValid() {
		return fmt.Errorf("invalid center %v", center)
	}
	pm.Map.SetView(center, zoom, mapview.ViewOptions{})
	return nil
}

// Navigate changes the permalink hash like a hash edit or a history move.
func (pm *PolarMap) Navigate(hash string) error {
	if pm.closed {
		return ErrClosed
	}
	if pm.location == nil {
		return errors.New("permalink is disabled")
	}
	pm.location.Navigate(hash)
	return nil
}

// Hash returns the current permalink, empty when the permalink is disabled.
func (pm *PolarMap) Hash() string {
	if pm.location == nil {
		return ""
	}
	return pm.location.Hash()
}

// LocationFound reports the position of the user, accuracy is in meters.
func (pm *PolarMap) LocationFound(center nums.LatLng, accuracy float64) error {
	if pm.closed {
		return ErrClosed
	}
	if !pm.opts.Locate {
		return ErrLocateDisabled
	}
	if !center.IsValid() {
		return fmt.Errorf("invalid location %v", center)
	}
	pm.Map.Fire(&mapview.Event{Type: mapview.EventLocationFound, LatLng: center, Accuracy: accuracy})
	return nil
}

func (pm *PolarMap) LocationError(err error) error {
	if pm.closed {
		return ErrClosed
	}
	if !pm.opts.Locate {
		return ErrLocateDisabled
	}
	pm.Map.Fire(&mapview.Event{Type: mapview.EventLocationError, Err: err})
	return nil
}

func (pm *PolarMap) onLocationFound(ev *mapview.Event) {
	if pm.userLocation == nil {
		pm.userLocation = layer.NewCircle(userLocationID, ev.LatLng, ev.Accuracy)
	} else {
		pm.userLocation.SetCircle(ev.LatLng, ev.Accuracy)
	}
	pm.located, pm.accuracy = ev.LatLng, ev.Accuracy
	if !pm.Map.HasLayer(pm.userLocation) {
		pm.Map.AttachLayer(pm.userLocation)
	}
	pm.setProjectionForLongitude(ev.LatLng.Lng)
}

func (pm *PolarMap) setProjectionForLongitude(lon float64) {
	def, err := pm.registry.ForLongitude(lon)
	if err != nil {
		pm.log.Warnf("%s no projection for longitude %v, %s", pm.id, lon, err.Error())
		return
	}
	pm.controller.SwitchTo(def)
}

type TouchPhase string

const (
	TouchStart TouchPhase = "start"
	TouchMove  TouchPhase = "move"
	TouchEnd   TouchPhase = "end"
)

// Touch feeds a touch event with its gesture rotation in degrees.
func (pm *PolarMap) Touch(phase TouchPhase, rotation float64) error {
	if pm.closed {
		return ErrClosed
	}
	var typ mapview.EventType
	switch phase {
	case TouchStart:
		typ = mapview.EventTouchStart
	case TouchMove:
		typ = mapview.EventTouchMove
	case TouchEnd:
		typ = mapview.EventTouchEnd
	default:
		return fmt.Errorf("unknown touch phase %q", phase)
	}
	pm.Map.Fire(&mapview.Event{Type: typ, Rotation: rotation})
	return nil
}

// AddLayer attaches l, a non empty name also lists it in the layers control.
func (pm *PolarMap) AddLayer(l layer.Layer, name string) {
	if pm.closed || l == nil {
		return
	}
	pm.Map.AttachLayer(l)
	if name != "" && !slices.ContainsFunc(pm.overlays, func(o Overlay) bool { return o.Layer == l }) {
		pm.overlays = append(pm.overlays, Overlay{Layer: l, Name: name})
	}
}

func (pm *PolarMap) RemoveLayer(l layer.Layer) {
	if pm.closed || l == nil {
		return
	}
	pm.Map.DetachLayer(l)
	pm.overlays = slices.DeleteFunc(pm.overlays, func(o Overlay) bool { return o.Layer == l })
}

func (pm *PolarMap) Overlays() []Overlay {
	return slices.Clone(pm.overlays)
}

// Subscribe calls fn with the state of the map after every change
// until the returned function is called.
func (pm *PolarMap) Subscribe(fn func(State)) func() {
	pm.subSeq++
	id := pm.subSeq
	pm.subscribers[id] = fn
	return func() { delete(pm.subscribers, id) }
}

func (pm *PolarMap) notify() {
	if pm.closed || len(pm.subscribers) == 0 {
		return
	}
	st := pm.State()
	for _, fn := range pm.subscribers {
		fn(st)
	}
}

// Close stops the permalink and the event handlers, the map keeps its last state.
func (pm *PolarMap) Close() {
	if pm.closed {
		return
	}
	pm.closed = true
	if pm.hash != nil {
		pm.hash.Remove()
	}
	for _, h := range pm.handlers {
		pm.Map.Off(h.typ, h.id)
	}
	pm.handlers = nil
	clear(pm.subscribers)
}

func (pm *PolarMap) Closed() bool { return pm.closed }

// hashTarget exposes the map to the permalink.
type hashTarget struct {
	pm *PolarMap
}

func (t hashTarget) View() mapview.View { return t.pm.Map.View() }

func (t hashTarget) SetView(center nums.LatLng, zoom int) {
	t.pm.Map.SetView(center, zoom, mapview.ViewOptions{})
}

func (t hashTarget) ProjectionID() string { return t.pm.controller.ActiveID() }

func (t hashTarget) SetProjection(id string) {
	if id == t.pm.controller.ActiveID() {
		return
	}
	if err := t.pm.controller.SwitchToID(id); err != nil {
		t.pm.log.Debugf("%s permalink projection %s, %s", t.pm.id, id, err.Error())
	}
}

func (t hashTarget) OnViewChanged(fn func()) mapview.HandlerID {
	return t.pm.Map.On(mapview.EventViewChanged, func(*mapview.Event) { fn() })
}

func (t hashTarget) OffViewChanged(id mapview.HandlerID) {
	t.pm.Map.Off(mapview.EventViewChanged, id)
}
