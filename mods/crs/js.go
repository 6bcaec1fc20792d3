package crs

import (
	"fmt"
	"strconv"
	"strings"
)

// MarshalJS returns the statement that declares varname as this CRS in a
// Leaflet page. Derived CRS use Proj4Leaflet, whose resolution table is
// indexed by zoom from 0, so levels below MinZoom are filled in.
func (c *CRS) MarshalJS(varname string) string {
	if c.IsBuiltin() {
		return fmt.Sprintf(`var %s = %s;`, varname, c.builtin)
	}
	res := []string{}
	for z := 0; z < c.minZoom+len(c.Resolutions); z++ {
		res = append(res, jsFloat(c.Resolution(z)))
	}
	return fmt.Sprintf(`var %s = new L.Proj.CRS('%s', '%s', {
			resolutions: [%s],
			origin: [%s,%s],
			bounds: L.bounds([%s,%s],[%s,%s])
		});`,
		varname, c.Code, c.Proj4Def,
		strings.Join(res, ","),
		jsFloat(c.Origin.X), jsFloat(c.Origin.Y),
		jsFloat(c.ProjectedBounds.Min.X), jsFloat(c.ProjectedBounds.Min.Y),
		jsFloat(c.ProjectedBounds.Max.X), jsFloat(c.ProjectedBounds.Max.Y))
}

// MaxZoom returns the deepest zoom level with a derived resolution.
func (c *CRS) MaxZoom() int {
	if c.IsBuiltin() {
		return 18
	}
	return c.minZoom + len(c.Resolutions) - 1
}

func (c *CRS) MinZoom() int {
	return c.minZoom
}

func jsFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
