package nums

import "math"

// mercator.go contains conversion tools for the Spherical Mercator coordinate system
// See http://www.maptiler.org/google-maps-coordinates-tile-bounds-projection/

const (
	TileSize          = 256.0
	EarthRadius       = 6378137.0
	initialResolution = 2 * math.Pi * EarthRadius / TileSize
	originShift       = 2 * math.Pi * EarthRadius / 2

	// MaxMercatorLat is the latitude where spherical mercator becomes square.
	MaxMercatorLat = 85.0511287798

	wgs84Flattening = 1 / 298.257223563
)

// Resolution calculates the resolution (meters/pixel) for given zoom level (measured at Equator)
func Resolution(zoom int) float64 {
	return initialResolution / math.Pow(2, float64(zoom))
}

// LatLngToMeters converts given lat/lng in WGS84 Datum to XY in Spherical Mercator EPSG:3857
func LatLngToMeters(lat, lng float64) (float64, float64) {
	lat = math.Max(math.Min(lat, MaxMercatorLat), -MaxMercatorLat)
	x := lng * originShift / 180
	y := math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180)
	y = y * originShift / 180
	return x, y
}

// MetersToLatLng converts XY point from Spherical Mercator EPSG:3857 to lat/lng in WGS84 Datum
func MetersToLatLng(x, y float64) (float64, float64) {
	lng := (x / originShift) * 180
	lat := (y / originShift) * 180
	lat = 180 / math.Pi * (2*math.Atan(math.Exp(lat*math.Pi/180)) - math.Pi/2)
	return lat, lng
}

// LatLngToEllipticalMeters converts lat/lng to World Mercator EPSG:3395
func LatLngToEllipticalMeters(lat, lng float64) (float64, float64) {
	e := math.Sqrt(wgs84Flattening * (2 - wgs84Flattening))
	lat = math.Max(math.Min(lat, 89.5), -89.5)
	phi := lat * math.Pi / 180
	con := e * math.Sin(phi)
	ts := math.Tan(math.Pi/4-phi/2) / math.Pow((1-con)/(1+con), e/2)
	x := EarthRadius * lng * math.Pi / 180
	y := -EarthRadius * math.Log(math.Max(ts, 1e-10))
	return x, y
}

// EllipticalMetersToLatLng is the inverse of LatLngToEllipticalMeters
func EllipticalMetersToLatLng(x, y float64) (float64, float64) {
	e := math.Sqrt(wgs84Flattening * (2 - wgs84Flattening))
	ts := math.Exp(-y / EarthRadius)
	phi := math.Pi/2 - 2*math.Atan(ts)
	for i := 0; i < 15; i++ {
		con := e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(ts*math.Pow((1-con)/(1+con), e/2))
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			break
		}
		phi = next
	}
	return phi * 180 / math.Pi, x * 180 / math.Pi / EarthRadius
}

// PixelsToTile returns a tile covering region in given pixel coordinates
func PixelsToTile(px, py float64) (int, int) {
	tileX := int(math.Floor(px / TileSize))
	tileY := int(math.Floor(py / TileSize))
	return tileX, tileY
}
