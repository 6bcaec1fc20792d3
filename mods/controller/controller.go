package controller

import (
	"errors"
	"fmt"
	"iter"

	"github.com/machbase/neo-polarmap/mods/crs"
	"github.com/machbase/neo-polarmap/mods/layer"
	"github.com/machbase/neo-polarmap/mods/logging"
	"github.com/machbase/neo-polarmap/mods/mapview"
	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/machbase/neo-polarmap/mods/projection"
	gometrics "github.com/rcrowley/go-metrics"
)

// Host is the part of a map the controller drives.
type Host interface {
	AttachLayer(l layer.Layer)
	DetachLayer(l layer.Layer)
	Layers() iter.Seq[layer.Layer]
	View() mapview.View
	SetView(center nums.LatLng, zoom int, opts mapview.ViewOptions)
	SetCRS(c *crs.CRS)
	SetMaxBounds(b *nums.LatLngBounds)
}

var (
	ErrNoActive         = errors.New("no active projection")
	ErrSwitchInProgress = errors.New("another switch is in progress")
)

// SwitchListener is called after a successful switch, prev is nil for the first one.
type SwitchListener func(prev, next *projection.Definition)

// Controller swaps the CRS and the base tile layer of a host map.
type Controller struct {
	host     Host
	registry *projection.Registry
	log      logging.Log

	switching bool
	activeID  string
	crsCache  map[string]*crs.CRS
	tiles     map[string]*layer.Tile
	listeners []SwitchListener

	metrics *metrics
}

type Option func(*Controller)

func WithLogger(l logging.Log) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics registers the switch counters to r instead of the default registry.
func WithMetrics(r gometrics.Registry) Option {
	return func(c *Controller) { c.metrics = newMetrics(r) }
}

func New(host Host, registry *projection.Registry, opts ...Option) *Controller {
	c := &Controller{
		host:     host,
		registry: registry,
		crsCache: map[string]*crs.CRS{},
		tiles:    map[string]*layer.Tile{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = logging.GetLog("controller")
	}
	if c.metrics == nil {
		c.metrics = newMetrics(gometrics.DefaultRegistry)
	}
	return c
}

func (c *Controller) Registry() *projection.Registry {
	return c.registry
}

// Active returns the definition of the last successful switch, nil before the first one.
func (c *Controller) Active() *projection.Definition {
	if c.activeID == "" {
		return nil
	}
	def, err := c.registry.Get(c.activeID)
	if err != nil {
		return nil
	}
	return def
}

func (c *Controller) ActiveID() string {
	return c.activeID
}

// IsSwitching reports whether a switch is in progress.
func (c *Controller) IsSwitching() bool {
	return c.switching
}

func (c *Controller) OnSwitch(fn SwitchListener) {
	c.listeners = append(c.listeners, fn)
}

// TileLayer returns the base raster layer of def, the same layer every time.
func (c *Controller) TileLayer(def *projection.Definition) *layer.Tile {
	if t, ok := c.tiles[def.ID]; ok && t.Definition() == def {
		return t
	}
	t := layer.NewBaseTile(def)
	c.tiles[def.ID] = t
	return t
}

func (c *Controller) resolve(def *projection.Definition) (*crs.CRS, error) {
	if cached, ok := c.crsCache[def.ID]; ok {
		return cached, nil
	}
	resolved, err := def.ResolveCRS()
	if err != nil {
		return nil, err
	}
	c.crsCache[def.ID] = resolved
	return resolved, nil
}

// SwitchTo makes def the active projection while keeping the view.
// It returns false without touching the map when another switch is in
// progress, when def is not a member of the registry or when the CRS of
// def can not be resolved.
// Switching to the active projection is not skipped.
func (c *Controller) SwitchTo(def *projection.Definition) bool {
	return c.switchTo(def) == nil
}

func (c *Controller) switchTo(def *projection.Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", projection.ErrNotFound)
	}
	if c.switching {
		c.metrics.dropped.Inc(1)
		c.log.Debugf("switch to %s dropped, another switch is in progress", def.ID)
		return fmt.Errorf("%w: %s", ErrSwitchInProgress, def.ID)
	}
	if idx := c.registry.Index(def.ID); idx < 0 || c.registry.At(idx) != def {
		c.metrics.failed.Inc(1)
		return fmt.Errorf("%w: %s is not registered", projection.ErrNotFound, def.ID)
	}
	prev := c.Active()
	if err := c.doSwitch(def); err != nil {
		c.metrics.failed.Inc(1)
		c.log.Warnf("switch to %s failed, %s", def.ID, err.Error())
		return err
	}
	c.metrics.switches.Inc(1)
	for _, fn := range c.listeners {
		fn(prev, def)
	}
	return nil
}

// doSwitch holds the guard for the whole switch, a panicking layer
// releases it on the way out.
func (c *Controller) doSwitch(def *projection.Definition) error {
	c.switching = true
	defer func() { c.switching = false }()

	target, err := c.resolve(def)
	if err != nil {
		if !errors.Is(err, crs.ErrInvalidProjection) {
			err = fmt.Errorf("%w: %s", crs.ErrInvalidProjection, err.Error())
		}
		return err
	}
	view := c.host.View()

	var bases []layer.Layer
	for l := range c.host.Layers() {
		if layer.IsBaseRaster(l) {
			bases = append(bases, l)
		}
	}
	for _, l := range bases {
		c.host.DetachLayer(l)
	}

	c.host.SetCRS(target)
	for l := range c.host.Layers() {
		c.reproject(l, target, view.Zoom)
	}

	c.host.AttachLayer(c.TileLayer(def))
	c.host.SetView(view.Center, view.Zoom, mapview.ViewOptions{Reset: true})
	c.host.SetMaxBounds(def.Bounds)
	c.activeID = def.ID
	c.log.Debugf("switched to %s at %s", def.ID, view.String())
	return nil
}

func (c *Controller) reproject(l layer.Layer, target *crs.CRS, zoom int) {
	if layer.IsBaseRaster(l) {
		return
	}
	switch ll := l.(type) {
	case layer.Composite:
		for child := range ll.Children() {
			c.reproject(child, target, zoom)
		}
	case layer.Reprojector:
		ll.Reproject(target, zoom)
	case layer.Redrawer:
		ll.Redraw()
	default:
		c.log.Debugf("don't know how to update layer %s (%s)", l.ID(), l.Kind())
	}
}

// SwitchToID switches to the projection registered as id.
func (c *Controller) SwitchToID(id string) error {
	def, err := c.registry.Get(id)
	if err != nil {
		return err
	}
	return c.switchTo(def)
}

// RotateClockwise switches to the projection after the active one.
func (c *Controller) RotateClockwise() bool {
	active := c.Active()
	if active == nil {
		c.log.Debug("rotate ignored,", ErrNoActive.Error())
		return false
	}
	c.metrics.rotations.Inc(1)
	return c.SwitchTo(c.registry.Next(active))
}

// RotateCounterClockwise switches to the projection before the active one.
func (c *Controller) RotateCounterClockwise() bool {
	active := c.Active()
	if active == nil {
		c.log.Debug("rotate ignored,", ErrNoActive.Error())
		return false
	}
	c.metrics.rotations.Inc(1)
	return c.SwitchTo(c.registry.Prev(active))
}
