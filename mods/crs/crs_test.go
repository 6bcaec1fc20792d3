package crs

import (
	"errors"
	"math"
	"testing"

	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/stretchr/testify/require"
)

const arcticExtent = 11000000 + 9036842.762 + 667

func arcticParams(lon0 string) Params {
	return Params{
		Proj4Def:        "+proj=laea +lat_0=90 +lon_0=" + lon0 + " +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs",
		MinZoom:         0,
		MaxZoom:         18,
		MaxResolution:   2 * arcticExtent / 256,
		Origin:          nums.Point{X: -arcticExtent, Y: arcticExtent},
		ProjectedBounds: nums.NewBounds(nums.Point{X: -arcticExtent, Y: -arcticExtent}, nums.Point{X: arcticExtent, Y: arcticExtent}),
	}
}

func TestResolveBuiltin(t *testing.T) {
	for code, expect := range map[string]*CRS{
		"EPSG:3857": EPSG3857,
		"epsg:3395": EPSG3395,
		"EPSG:4326": EPSG4326,
	} {
		c, err := Resolve(code, Params{})
		require.NoError(t, err)
		require.Same(t, expect, c)
		require.True(t, c.IsBuiltin())
	}
}

func TestResolveDerived(t *testing.T) {
	c, err := Resolve("EPSG:3573", arcticParams("-100"))
	require.NoError(t, err)
	require.False(t, c.IsBuiltin())
	require.Len(t, c.Resolutions, 19)
	require.Equal(t, 2*arcticExtent/256, c.Resolution(0))
	for z := 1; z <= 18; z++ {
		require.InDelta(t, c.Resolution(z-1)/2, c.Resolution(z), 1e-12)
	}
	require.Equal(t, 0, c.MinZoom())
	require.Equal(t, 18, c.MaxZoom())

	again, err := Resolve("EPSG:3573", arcticParams("-100"))
	require.NoError(t, err)
	require.NotSame(t, c, again)
	require.True(t, c.Equal(again))

	other, err := Resolve("EPSG:3574", arcticParams("-40"))
	require.NoError(t, err)
	require.False(t, c.Equal(other))
	require.False(t, c.Equal(EPSG3857))
}

func TestResolveMinZoomOffset(t *testing.T) {
	params := arcticParams("180")
	params.MinZoom = 2
	params.MaxZoom = 4
	c, err := Resolve("EPSG:3571", params)
	require.NoError(t, err)
	require.Len(t, c.Resolutions, 3)
	require.Equal(t, params.MaxResolution/4, c.Resolution(2))
	require.Equal(t, params.MaxResolution/16, c.Resolution(4))
	// outside the table the resolution keeps halving
	require.Equal(t, params.MaxResolution, c.Resolution(0))
	require.Equal(t, params.MaxResolution/32, c.Resolution(5))
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		modify func(p *Params)
	}{
		{"empty code", "", func(p *Params) {}},
		{"empty proj4", "EPSG:3571", func(p *Params) { p.Proj4Def = "" }},
		{"min above max", "EPSG:3571", func(p *Params) { p.MinZoom, p.MaxZoom = 5, 4 }},
		{"negative min", "EPSG:3571", func(p *Params) { p.MinZoom = -1 }},
		{"zero resolution", "EPSG:3571", func(p *Params) { p.MaxResolution = 0 }},
		{"nan resolution", "EPSG:3571", func(p *Params) { p.MaxResolution = math.NaN() }},
		{"nan origin", "EPSG:3571", func(p *Params) { p.Origin.X = math.NaN() }},
		{"malformed proj4", "EPSG:3571", func(p *Params) { p.Proj4Def = "proj=laea" }},
		{"bad lat_0", "EPSG:3571", func(p *Params) { p.Proj4Def = "+proj=laea +lat_0=north" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := arcticParams("180")
			tt.modify(&p)
			c, err := Resolve(tt.code, p)
			require.Nil(t, c)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidProjection), err.Error())
		})
	}
}

func TestLatLngToPoint(t *testing.T) {
	c, err := Resolve("EPSG:3571", arcticParams("180"))
	require.NoError(t, err)

	// the pole is the center of the single zoom 0 tile
	pt := c.LatLngToPoint(nums.LatLng{Lat: 90, Lng: 0}, 0)
	require.InDelta(t, 128, pt.X, 1e-6)
	require.InDelta(t, 128, pt.Y, 1e-6)

	pt = c.LatLngToPoint(nums.LatLng{Lat: 90, Lng: 0}, 3)
	require.InDelta(t, 1024, pt.X, 1e-6)
	require.InDelta(t, 1024, pt.Y, 1e-6)

	// lon_0 points down the screen
	pt = c.LatLngToPoint(nums.LatLng{Lat: 60, Lng: 180}, 2)
	require.InDelta(t, 512, pt.X, 1e-6)
	require.Greater(t, pt.Y, 512.0)

	ll := c.PointToLatLng(pt, 2)
	require.InDelta(t, 60, ll.Lat, 1e-7)
	require.InDelta(t, 180, math.Abs(ll.Lng), 1e-7)
}

func TestBuiltinLatLngToPoint(t *testing.T) {
	pt := EPSG3857.LatLngToPoint(nums.LatLng{Lat: 0, Lng: 0}, 0)
	require.InDelta(t, 128, pt.X, 1e-9)
	require.InDelta(t, 128, pt.Y, 1e-9)

	pt = EPSG3857.LatLngToPoint(nums.LatLng{Lat: 0, Lng: 180}, 1)
	require.InDelta(t, 512, pt.X, 1e-6)

	pt = EPSG4326.LatLngToPoint(nums.LatLng{Lat: 90, Lng: -180}, 0)
	require.InDelta(t, 0, pt.X, 1e-9)
	require.InDelta(t, 0, pt.Y, 1e-9)

	ll := EPSG3395.PointToLatLng(EPSG3395.LatLngToPoint(nums.LatLng{Lat: 45, Lng: 10}, 5), 5)
	require.InDelta(t, 45, ll.Lat, 1e-7)
	require.InDelta(t, 10, ll.Lng, 1e-7)
}

func TestBuiltinResolution(t *testing.T) {
	require.InDelta(t, 156543.03392804097, EPSG3857.Resolution(0), 1e-6)
	require.InDelta(t, 152.8740565703525, EPSG3857.Resolution(10), 1e-9)
	require.InDelta(t, EPSG3857.Resolution(7), EPSG3395.Resolution(7), 1e-9)
	require.InDelta(t, 180.0/256, EPSG4326.Resolution(0), 1e-12)
}

func TestPixelBounds(t *testing.T) {
	b := EPSG4326.PixelBounds(0)
	require.InDelta(t, 0, b.Min.X, 1e-9)
	require.InDelta(t, 0, b.Min.Y, 1e-9)
	require.InDelta(t, 512, b.Max.X, 1e-9)
	require.InDelta(t, 256, b.Max.Y, 1e-9)
	require.True(t, b.Contains(nums.Point{X: 256, Y: 128}))
	require.False(t, b.Contains(nums.Point{X: 513, Y: 128}))
}

func TestMarshalJS(t *testing.T) {
	require.Equal(t, "var crs = L.CRS.EPSG3857;", EPSG3857.MarshalJS("crs"))

	params := arcticParams("90")
	params.MaxZoom = 2
	c, err := Resolve("EPSG:3576", params)
	require.NoError(t, err)
	js := c.MarshalJS("crs3576")
	require.Contains(t, js, "var crs3576 = new L.Proj.CRS('EPSG:3576', '+proj=laea +lat_0=90 +lon_0=90")
	require.Contains(t, js, "resolutions: [156543.045015625,78271.5225078125,39135.76125390625]")
	require.Contains(t, js, "origin: [-20037509.762,20037509.762]")
	require.Contains(t, js, "bounds: L.bounds([-20037509.762,-20037509.762],[20037509.762,20037509.762])")
}
