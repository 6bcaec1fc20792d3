package layer

import (
	"fmt"
	"math"

	"github.com/machbase/neo-polarmap/mods/crs"
	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// Vector is a geometry overlay, coordinates are [lon, lat].
// Its pixel geometry is recomputed on every Reproject.
type Vector struct {
	id         string
	geometry   orb.Geometry
	properties geojson.Properties
	// radius in meters, only for circles
	radius float64

	crs       *crs.CRS
	zoom      int
	projected orb.Geometry
}

var _ Reprojector = (*Vector)(nil)

func NewVector(id string, g orb.Geometry, props geojson.Properties) *Vector {
	if props == nil {
		props = geojson.Properties{}
	}
	return &Vector{id: id, geometry: g, properties: props}
}

// NewCircle returns a circle of radius meters around center.
func NewCircle(id string, center nums.LatLng, radius float64) *Vector {
	v := NewVector(id, orb.Point{center.Lng, center.Lat}, geojson.Properties{"radius": radius})
	v.radius = radius
	return v
}

func (v *Vector) ID() string                     { return v.id }
func (v *Vector) Kind() Kind                     { return KindVector }
func (v *Vector) Geometry() orb.Geometry         { return v.geometry }
func (v *Vector) Properties() geojson.Properties { return v.properties }
func (v *Vector) Radius() float64                { return v.radius }

// SetCircle moves a circle, the pixel geometry follows the last CRS.
func (v *Vector) SetCircle(center nums.LatLng, radius float64) {
	v.geometry = orb.Point{center.Lng, center.Lat}
	v.radius = radius
	v.properties["radius"] = radius
	if v.crs != nil {
		v.Reproject(v.crs, v.zoom)
	}
}

// Bounds returns the geographic extent of the geometry.
func (v *Vector) Bounds() *nums.LatLngBounds {
	b := v.geometry.Bound()
	return nums.NewLatLngBounds(
		nums.LatLng{Lat: b.Min[1], Lng: b.Min[0]},
		nums.LatLng{Lat: b.Max[1], Lng: b.Max[0]})
}

func (v *Vector) Reproject(c *crs.CRS, zoom int) {
	v.crs, v.zoom = c, zoom
	v.projected = project.Geometry(orb.Clone(v.geometry), func(p orb.Point) orb.Point {
		pt := c.LatLngToPoint(nums.LatLng{Lat: p[1], Lng: p[0]}, zoom)
		return orb.Point{pt.X, pt.Y}
	})
}

// Projected returns the pixel geometry of the last Reproject, nil before the first one.
func (v *Vector) Projected() orb.Geometry {
	return v.projected
}

// PixelRadius converts the circle radius to pixels at the projected center.
func (v *Vector) PixelRadius() float64 {
	if v.crs == nil || v.radius == 0 {
		return 0
	}
	res := v.crs.Resolution(v.zoom)
	if math.IsNaN(res) || res == 0 {
		return 0
	}
	return v.radius / res
}

func (v *Vector) Feature() *geojson.Feature {
	f := geojson.NewFeature(v.geometry)
	f.ID = v.id
	for k, val := range v.properties {
		f.Properties[k] = val
	}
	return f
}

func (v *Vector) String() string {
	return fmt.Sprintf("vector(%s %s)", v.id, v.geometry.GeoJSONType())
}
