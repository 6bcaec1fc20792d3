package crs

import (
	"math"
	"testing"

	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/stretchr/testify/require"
)

func newLAEA(t *testing.T, def string) *LAEA {
	t.Helper()
	params, err := ParseProj4(def)
	require.NoError(t, err)
	l, err := NewLAEA(params)
	require.NoError(t, err)
	return l
}

func TestLAEANorthPolar(t *testing.T) {
	l := newLAEA(t, "+proj=laea +lat_0=90 +lon_0=180 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs")

	pt := l.Project(nums.LatLng{Lat: 90, Lng: 0})
	require.InDelta(t, 0, pt.X, 1e-6)
	require.InDelta(t, 0, pt.Y, 1e-6)

	pt = l.Project(nums.LatLng{Lat: 0, Lng: 180})
	require.InDelta(t, 0, pt.X, 1e-6)
	require.InDelta(t, -9009964.761, pt.Y, 1e-2)

	pt = l.Project(nums.LatLng{Lat: 45, Lng: -150})
	require.InDelta(t, 2444667.401, pt.X, 1e-2)
	require.InDelta(t, -4234288.147, pt.Y, 1e-2)

	// the south pole is the antipode
	pt = l.Project(nums.LatLng{Lat: -90, Lng: 0})
	require.True(t, math.IsNaN(pt.X))
}

func TestLAEAOblique(t *testing.T) {
	// EPSG:3035
	l := newLAEA(t, "+proj=laea +lat_0=52 +lon_0=10 +x_0=4321000 +y_0=3210000 +ellps=GRS80 +units=m +no_defs")
	pt := l.Project(nums.LatLng{Lat: 48.85, Lng: 2.35})
	require.InDelta(t, 3760536.823, pt.X, 1e-2)
	require.InDelta(t, 2888771.021, pt.Y, 1e-2)

	ll := l.Unproject(nums.Point{X: 4321000, Y: 3210000})
	require.InDelta(t, 52, ll.Lat, 1e-9)
	require.InDelta(t, 10, ll.Lng, 1e-9)
}

func TestLAEARoundTrip(t *testing.T) {
	defs := []string{
		"+proj=laea +lat_0=90 +lon_0=-100 +datum=WGS84",
		"+proj=laea +lat_0=-90 +lon_0=0 +datum=WGS84",
		"+proj=laea +lat_0=0 +lon_0=20 +datum=WGS84",
		"+proj=laea +lat_0=52 +lon_0=10 +x_0=4321000 +y_0=3210000 +ellps=GRS80",
		"+proj=laea +lat_0=45 +lon_0=-100 +R=6370997",
	}
	points := []nums.LatLng{
		{Lat: 10, Lng: 10},
		{Lat: 45.5, Lng: -73.6},
		{Lat: 66.56, Lng: 120},
		{Lat: -33.9, Lng: 18.4},
		{Lat: 0, Lng: 0},
	}
	for _, def := range defs {
		l := newLAEA(t, def)
		for _, ll := range points {
			pt := l.Project(ll)
			if math.IsNaN(pt.X) {
				continue
			}
			back := l.Unproject(pt)
			require.InDelta(t, ll.Lat, back.Lat, 1e-7, "%s %v", def, ll)
			require.InDelta(t, ll.Lng, back.Lng, 1e-7, "%s %v", def, ll)
		}
	}
}

func TestParseProj4(t *testing.T) {
	pp, err := ParseProj4("+proj=laea +lat_0=90 +lon_0=-40 +no_defs")
	require.NoError(t, err)
	require.Equal(t, Proj4Params{"proj": "laea", "lat_0": "90", "lon_0": "-40", "no_defs": ""}, pp)

	v, err := pp.Float("lon_0", 0)
	require.NoError(t, err)
	require.Equal(t, -40.0, v)
	v, err = pp.Float("x_0", 7)
	require.NoError(t, err)
	require.Equal(t, 7.0, v)

	a, fi, err := pp.Ellipsoid()
	require.NoError(t, err)
	require.Equal(t, 6378137.0, a)
	require.Equal(t, 298.257223563, fi)

	pp, err = ParseProj4("+proj=laea +a=6371000 +b=6371000")
	require.NoError(t, err)
	_, fi, err = pp.Ellipsoid()
	require.NoError(t, err)
	require.Equal(t, 0.0, fi)

	_, err = ParseProj4("+lat_0=90")
	require.Error(t, err)
	_, err = ParseProj4("proj=laea")
	require.Error(t, err)
}

func TestTransverseMercator(t *testing.T) {
	p, err := NewProjector("EPSG:5186", "+proj=tmerc +lat_0=38 +lon_0=127 +k=1 +x_0=200000 +y_0=600000 +ellps=GRS80 +units=m +no_defs")
	require.NoError(t, err)
	require.IsType(t, &TransverseMercator{}, p)

	pt := p.Project(nums.LatLng{Lat: 38, Lng: 127})
	require.InDelta(t, 200000, pt.X, 1e-3)
	require.InDelta(t, 600000, pt.Y, 1e-3)

	ll := p.Unproject(p.Project(nums.LatLng{Lat: 37.5665, Lng: 126.978}))
	require.InDelta(t, 37.5665, ll.Lat, 1e-6)
	require.InDelta(t, 126.978, ll.Lng, 1e-6)
}
