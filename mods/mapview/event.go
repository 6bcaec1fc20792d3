package mapview

import (
	"github.com/machbase/neo-polarmap/mods/crs"
	"github.com/machbase/neo-polarmap/mods/layer"
	"github.com/machbase/neo-polarmap/mods/nums"
)

type EventType string

const (
	EventViewChanged   EventType = "viewchanged"
	EventViewReset     EventType = "viewreset"
	EventLayerAdd      EventType = "layeradd"
	EventLayerRemove   EventType = "layerremove"
	EventCRSChange     EventType = "crschange"
	EventLocationFound EventType = "locationfound"
	EventLocationError EventType = "locationerror"
	EventTouchStart    EventType = "touchstart"
	EventTouchMove     EventType = "touchmove"
	EventTouchEnd      EventType = "touchend"
)

// Event is passed to handlers, only the fields of its type are set.
type Event struct {
	Type     EventType
	View     View
	Layer    layer.Layer
	CRS      *crs.CRS
	LatLng   nums.LatLng
	Accuracy float64
	Err      error
	// Rotation is the gesture rotation in degrees of touch events.
	Rotation float64

	stopped bool
}

// StopPropagation keeps the event from reaching the handlers after the current one.
func (ev *Event) StopPropagation() {
	ev.stopped = true
}

func (ev *Event) Stopped() bool {
	return ev.stopped
}

type HandlerID int64

type Handler func(ev *Event)

type handlerEntry struct {
	id HandlerID
	fn Handler
}
