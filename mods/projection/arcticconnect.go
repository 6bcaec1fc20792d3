package projection

import (
	"fmt"

	"github.com/machbase/neo-polarmap/mods/nums"
)

// ArcticExtent is the half width of the ArcticConnect tile grids in meters.
const ArcticExtent = 11000000 + 9036842.762 + 667

const arcticAttribution = `Map &copy; <a href="http://arcticconnect.org/">ArcticConnect</a>. Data &copy; <a href="http://osm.org/copyright">OpenStreetMap</a> contributors`

var arcticMeridians = []struct {
	epsg int
	lon0 int
	name string
}{
	{3571, 180, "Bering Sea"},
	{3572, -150, "Alaska"},
	{3573, -100, "Canada"},
	{3574, -40, "Atlantic"},
	{3575, 10, "Europe"},
	{3576, 90, "Russia"},
}

// ArcticConnect returns the six north polar LAEA projections served by
// tiles.arcticconnect.org, ordered by central meridian from 180 eastward.
func ArcticConnect() []*Definition {
	ret := make([]*Definition, 0, len(arcticMeridians))
	for _, m := range arcticMeridians {
		ret = append(ret, &Definition{
			ID:            fmt.Sprintf("ac_%d", m.epsg),
			Name:          fmt.Sprintf("%s (EPSG:%d)", m.name, m.epsg),
			CRSCode:       fmt.Sprintf("EPSG:%d", m.epsg),
			Proj4Def:      fmt.Sprintf("+proj=laea +lat_0=90 +lon_0=%d +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs", m.lon0),
			TileURL:       fmt.Sprintf("https://{s}.tiles.arcticconnect.org/osm_%d/{z}/{x}/{y}.png", m.epsg),
			Subdomains:    []string{"a", "b", "c"},
			MinZoom:       0,
			MaxZoom:       18,
			MaxResolution: 2 * ArcticExtent / 256,
			Origin:        nums.Point{X: -ArcticExtent, Y: ArcticExtent},
			ProjectedBounds: nums.NewBounds(
				nums.Point{X: -ArcticExtent, Y: -ArcticExtent},
				nums.Point{X: ArcticExtent, Y: ArcticExtent}),
			Center:      nums.LatLng{Lat: 90, Lng: 0},
			Zoom:        4,
			Attribution: arcticAttribution,
		})
	}
	return ret
}

// DefaultRegistry is a registry of ArcticConnect.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(ArcticConnect()...)
	if err != nil {
		panic(err)
	}
	return r
}
