package projection

import "math"

type band struct {
	upper float64
	code  string
}

// bands are closed at the upper end, the first one also includes -180.
var bands = []band{
	{-165, "EPSG:3571"},
	{-125, "EPSG:3572"},
	{-70, "EPSG:3573"},
	{-15, "EPSG:3574"},
	{50, "EPSG:3575"},
	{135, "EPSG:3576"},
}

// ForLongitude returns the arctic LAEA crs code whose central meridian
// band contains lon. Longitudes outside [-180, 135] select EPSG:3571,
// whose central meridian is 180.
func ForLongitude(lon float64) string {
	if math.IsNaN(lon) || lon < -180 {
		return "EPSG:3571"
	}
	for _, b := range bands {
		if lon <= b.upper {
			return b.code
		}
	}
	return "EPSG:3571"
}
