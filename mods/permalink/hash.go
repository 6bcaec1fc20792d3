package permalink

import (
	"math"
	"strconv"
	"strings"

	"github.com/machbase/neo-polarmap/mods/nums"
)

// View is what a permalink encodes.
type View struct {
	ProjectionID string      `json:"projection,omitempty"`
	Zoom         int         `json:"zoom"`
	Center       nums.LatLng `json:"center"`
}

// Parsed is a decoded hash, ProjectionID is empty for the three field form.
type Parsed = View

// Precision is the number of decimals kept for a coordinate at zoom.
func Precision(zoom int) int {
	if zoom <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(zoom))))
}

// FormatHash encodes v as #[projection/]zoom/lat/lon.
func FormatHash(v View) string {
	prec := Precision(v.Zoom)
	parts := make([]string, 0, 4)
	if v.ProjectionID != "" {
		parts = append(parts, v.ProjectionID)
	}
	parts = append(parts,
		strconv.Itoa(v.Zoom),
		strconv.FormatFloat(v.Center.Lat, 'f', prec, 64),
		strconv.FormatFloat(v.Center.Lng, 'f', prec, 64))
	return "#" + strings.Join(parts, "/")
}

// ParseHash decodes a hash made by FormatHash, the leading # is optional.
// It returns false for anything else.
func ParseHash(hash string) (Parsed, bool) {
	hash = strings.TrimPrefix(hash, "#")
	args := strings.Split(hash, "/")
	ret := Parsed{}
	switch len(args) {
	case 4:
		if args[0] == "" {
			return ret, false
		}
		ret.ProjectionID = args[0]
		args = args[1:]
	case 3:
	default:
		return ret, false
	}
	zoom, err := strconv.Atoi(args[0])
	if err != nil {
		return ret, false
	}
	lat, ok := parseCoord(args[1])
	if !ok {
		return ret, false
	}
	lon, ok := parseCoord(args[2])
	if !ok {
		return ret, false
	}
	ret.Zoom = zoom
	ret.Center = nums.LatLng{Lat: lat, Lng: lon}
	return ret, true
}

func parseCoord(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
