package crs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/machbase/neo-polarmap/mods/nums"
)

// Projector converts between geographic coordinates and projected meters.
// A point that can not be projected comes back with NaN components.
type Projector interface {
	Project(ll nums.LatLng) nums.Point
	Unproject(p nums.Point) nums.LatLng
}

type SphericalMercator struct{}

func (SphericalMercator) Project(ll nums.LatLng) nums.Point {
	x, y := nums.LatLngToMeters(ll.Lat, ll.Lng)
	return nums.Point{X: x, Y: y}
}

func (SphericalMercator) Unproject(p nums.Point) nums.LatLng {
	lat, lng := nums.MetersToLatLng(p.X, p.Y)
	return nums.LatLng{Lat: lat, Lng: lng}
}

type EllipticalMercator struct{}

func (EllipticalMercator) Project(ll nums.LatLng) nums.Point {
	x, y := nums.LatLngToEllipticalMeters(ll.Lat, ll.Lng)
	return nums.Point{X: x, Y: y}
}

func (EllipticalMercator) Unproject(p nums.Point) nums.LatLng {
	lat, lng := nums.EllipticalMetersToLatLng(p.X, p.Y)
	return nums.LatLng{Lat: lat, Lng: lng}
}

// LonLat is the equirectangular identity projection.
type LonLat struct{}

func (LonLat) Project(ll nums.LatLng) nums.Point {
	return nums.Point{X: ll.Lng, Y: ll.Lat}
}

func (LonLat) Unproject(p nums.Point) nums.LatLng {
	return nums.LatLng{Lat: p.Y, Lng: p.X}
}

// Proj4Params is a parsed proj4 definition, "+proj=laea +lat_0=90 +no_defs"
// becomes {"proj":"laea", "lat_0":"90", "no_defs":""}.
type Proj4Params map[string]string

func ParseProj4(def string) (Proj4Params, error) {
	ret := Proj4Params{}
	for _, tok := range strings.Fields(def) {
		if !strings.HasPrefix(tok, "+") || len(tok) == 1 {
			return nil, fmt.Errorf("malformed proj4 token %q", tok)
		}
		k, v, _ := strings.Cut(tok[1:], "=")
		ret[k] = v
	}
	if ret["proj"] == "" {
		return nil, fmt.Errorf("proj4 definition has no +proj")
	}
	return ret, nil
}

// Float returns the numeric value of key, or def when the key is absent.
func (pp Proj4Params) Float(key string, def float64) (float64, error) {
	s, ok := pp[key]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("+%s=%s is not a number", key, s)
	}
	return v, nil
}

// Ellipsoid returns the semi-major axis and the inverse flattening,
// an inverse flattening of 0 means a sphere.
func (pp Proj4Params) Ellipsoid() (a float64, fi float64, err error) {
	if r, ok := pp["R"]; ok {
		a, err = strconv.ParseFloat(r, 64)
		return a, 0, err
	}
	a, fi = 6378137, 298.257223563
	switch strings.ToUpper(pp["ellps"]) {
	case "GRS80":
		fi = 298.257222101
	case "SPHERE":
		a, fi = 6370997, 0
	}
	if v, ok := pp["a"]; ok {
		if a, err = strconv.ParseFloat(v, 64); err != nil {
			return 0, 0, err
		}
	}
	if v, ok := pp["rf"]; ok {
		if fi, err = strconv.ParseFloat(v, 64); err != nil {
			return 0, 0, err
		}
	} else if v, ok := pp["b"]; ok {
		b, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, 0, err
		}
		if b == a {
			fi = 0
		} else {
			fi = a / (a - b)
		}
	}
	return a, fi, nil
}

// NewProjector picks the projector for a proj4 definition.
func NewProjector(code string, def string) (Projector, error) {
	params, err := ParseProj4(def)
	if err != nil {
		return nil, err
	}
	switch params["proj"] {
	case "laea":
		return NewLAEA(params)
	case "tmerc":
		return NewTransverseMercator(code, params)
	case "longlat", "latlong":
		return LonLat{}, nil
	default:
		return NewGeneric(def)
	}
}

var wgs84LongLat = "+proj=longlat +datum=WGS84 +no_defs"

// Generic delegates to a proj4 implementation for projections
// without a dedicated projector.
type Generic struct {
	forward proj.Transformer
	inverse proj.Transformer
}

func NewGeneric(def string) (*Generic, error) {
	src, err := proj.Parse(wgs84LongLat)
	if err != nil {
		return nil, err
	}
	dst, err := proj.Parse(def)
	if err != nil {
		return nil, err
	}
	fwd, err := src.NewTransform(dst)
	if err != nil {
		return nil, err
	}
	inv, err := dst.NewTransform(src)
	if err != nil {
		return nil, err
	}
	return &Generic{forward: fwd, inverse: inv}, nil
}

func (g *Generic) Project(ll nums.LatLng) nums.Point {
	x, y, err := g.forward(ll.Lng, ll.Lat)
	if err != nil {
		return nums.Point{X: math.NaN(), Y: math.NaN()}
	}
	return nums.Point{X: x, Y: y}
}

func (g *Generic) Unproject(p nums.Point) nums.LatLng {
	lng, lat, err := g.inverse(p.X, p.Y)
	if err != nil {
		return nums.LatLng{Lat: math.NaN(), Lng: math.NaN()}
	}
	return nums.LatLng{Lat: lat, Lng: lng}
}
