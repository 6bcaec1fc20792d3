package crs

import (
	"strconv"
	"strings"

	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/wroge/wgs84"
)

type spheroid struct {
	a, fi float64
}

func (s spheroid) A() float64 {
	return s.a
}
func (s spheroid) Fi() float64 {
	return s.fi
}

// TransverseMercator projects with +proj=tmerc parameters,
// e.g. EPSG:5186 +proj=tmerc +lat_0=38 +lon_0=127 +k=1 +x_0=200000 +y_0=600000 +ellps=GRS80
type TransverseMercator struct {
	forward func(a, b, c float64) (a2, b2, c2 float64)
	inverse func(a, b, c float64) (a2, b2, c2 float64)
}

func NewTransverseMercator(code string, params Proj4Params) (*TransverseMercator, error) {
	a, fi, err := params.Ellipsoid()
	if err != nil {
		return nil, err
	}
	k0, err := params.Float("k_0", 1)
	if err != nil {
		return nil, err
	}
	values := map[string]float64{"lat_0": 0, "lon_0": 0, "k": k0, "x_0": 0, "y_0": 0}
	for key, def := range values {
		v, err := params.Float(key, def)
		if err != nil {
			return nil, err
		}
		values[key] = v
	}
	datum := wgs84.Datum{
		Spheroid: spheroid{a: a, fi: fi},
		Area: wgs84.AreaFunc(func(lon, lat float64) bool {
			return true
		}),
	}
	tm := datum.TransverseMercator(values["lon_0"], values["lat_0"], values["k"], values["x_0"], values["y_0"])
	epsg := wgs84.EPSG()
	epsgCode := epsgNumber(code)
	epsg.Add(epsgCode, tm)
	return &TransverseMercator{
		forward: wgs84.Transform(wgs84.WGS84().LonLat(), epsg.Code(epsgCode)),
		inverse: wgs84.Transform(epsg.Code(epsgCode), wgs84.WGS84().LonLat()),
	}, nil
}

// epsgNumber extracts 5186 from "EPSG:5186"; codes of other
// authorities get a private number, the repository is local to one projector.
func epsgNumber(code string) int {
	if auth, num, ok := strings.Cut(code, ":"); ok && strings.EqualFold(auth, "EPSG") {
		if n, err := strconv.Atoi(num); err == nil {
			return n
		}
	}
	return 900913
}

func (tm *TransverseMercator) Project(ll nums.LatLng) nums.Point {
	x, y, _ := tm.forward(ll.Lng, ll.Lat, 0)
	return nums.Point{X: x, Y: y}
}

func (tm *TransverseMercator) Unproject(p nums.Point) nums.LatLng {
	lng, lat, _ := tm.inverse(p.X, p.Y, 0)
	return nums.LatLng{Lat: lat, Lng: lng}
}
