package permalink

import (
	"fmt"
	"math"
	"testing"

	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/stretchr/testify/require"
)

func TestPrecision(t *testing.T) {
	expect := map[int]int{0: 0, 1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 16: 4, 17: 5, 18: 5}
	for zoom, prec := range expect {
		require.Equal(t, prec, Precision(zoom), "zoom %d", zoom)
	}
}

func TestFormatHash(t *testing.T) {
	tests := []struct {
		view   View
		expect string
	}{
		{View{ProjectionID: "ac_3571", Zoom: 4, Center: nums.LatLng{Lat: 70.12345, Lng: 20.5}}, "#ac_3571/4/70.12/20.50"},
		{View{Zoom: 0, Center: nums.LatLng{Lat: 70.2, Lng: 20.4}}, "#0/70/20"},
		{View{Zoom: 18, Center: nums.LatLng{Lat: 64.123456789, Lng: -21.987654321}}, "#18/64.12346/-21.98765"},
		{View{ProjectionID: "ac_3573", Zoom: 1, Center: nums.LatLng{Lat: 90, Lng: 0}}, "#ac_3573/1/90/0"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.expect, FormatHash(tc.view))
	}
}

func TestParseHash(t *testing.T) {
	tests := []struct {
		hash   string
		ok     bool
		expect Parsed
	}{
		{"#ac_3571/4/70.12/20.50", true, Parsed{ProjectionID: "ac_3571", Zoom: 4, Center: nums.LatLng{Lat: 70.12, Lng: 20.5}}},
		{"4/70.12/20.50", true, Parsed{Zoom: 4, Center: nums.LatLng{Lat: 70.12, Lng: 20.5}}},
		{"#0/-90/-180", true, Parsed{Zoom: 0, Center: nums.LatLng{Lat: -90, Lng: -180}}},
		{"#abc", false, Parsed{}},
		{"#1/2", false, Parsed{}},
		{"#/1/2/3", false, Parsed{}},
		{"", false, Parsed{}},
		{"#a/b/1/2/3", false, Parsed{}},
		{"#x/4/NaN/1", false, Parsed{}},
		{"#4/1/Inf", false, Parsed{}},
		{"#4.5/1/2", false, Parsed{}},
		{"#4/north/2", false, Parsed{}},
	}
	for _, tc := range tests {
		t.Run(tc.hash, func(t *testing.T) {
			p, ok := ParseHash(tc.hash)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, tc.expect, p)
			}
		})
	}
}

func TestHashRoundTrip(t *testing.T) {
	for zoom := 0; zoom <= 18; zoom++ {
		tolerance := 0.5*math.Pow(10, -float64(Precision(zoom))) + 1e-9
		for _, lat := range []float64{-90, -45.678901, 0, 12.3456789, 89.999999, 90} {
			for _, lon := range []float64{-180, -99.123456, 0, 45.5555555, 179.99, 180} {
				v := View{ProjectionID: fmt.Sprintf("p%d", zoom), Zoom: zoom, Center: nums.LatLng{Lat: lat, Lng: lon}}
				p, ok := ParseHash(FormatHash(v))
				require.True(t, ok)
				require.Equal(t, v.ProjectionID, p.ProjectionID)
				require.Equal(t, zoom, p.Zoom)
				require.InDelta(t, lat, p.Center.Lat, tolerance)
				require.InDelta(t, lon, p.Center.Lng, tolerance)
			}
		}
	}
}
