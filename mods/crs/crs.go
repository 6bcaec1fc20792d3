package crs

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/machbase/neo-polarmap/mods/nums"
)

var ErrInvalidProjection = errors.New("invalid projection")

// Well-known codes that resolve to built-in CRS values.
const (
	CodeEPSG3857 = "EPSG:3857"
	CodeEPSG3395 = "EPSG:3395"
	CodeEPSG4326 = "EPSG:4326"
)

// Params carries the projection parameters a custom CRS is derived from.
type Params struct {
	Proj4Def        string
	MinZoom         int
	MaxZoom         int
	MaxResolution   float64
	Origin          nums.Point
	ProjectedBounds nums.Bounds
}

// CRS maps geographic coordinates to projected meters and to pixels at a zoom level.
type CRS struct {
	Code            string
	Proj4Def        string
	Origin          nums.Point
	Resolutions     []float64
	ProjectedBounds nums.Bounds
	Transformation  Transformation
	Projector       Projector

	minZoom int
	// builtin holds the Leaflet expression of a well-known CRS,
	// it is empty for derived ones.
	builtin string
}

var (
	EPSG3857 = &CRS{
		Code:           CodeEPSG3857,
		Proj4Def:       "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +nadgrids=@null +wktext +no_defs",
		Transformation: mercatorTransformation,
		Projector:      SphericalMercator{},
		ProjectedBounds: nums.NewBounds(
			nums.Point{X: -math.Pi * nums.EarthRadius, Y: -math.Pi * nums.EarthRadius},
			nums.Point{X: math.Pi * nums.EarthRadius, Y: math.Pi * nums.EarthRadius}),
		builtin: "L.CRS.EPSG3857",
	}
	EPSG3395 = &CRS{
		Code:           CodeEPSG3395,
		Proj4Def:       "+proj=merc +lon_0=0 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs",
		Transformation: mercatorTransformation,
		Projector:      EllipticalMercator{},
		ProjectedBounds: nums.NewBounds(
			nums.Point{X: -math.Pi * nums.EarthRadius, Y: -math.Pi * nums.EarthRadius},
			nums.Point{X: math.Pi * nums.EarthRadius, Y: math.Pi * nums.EarthRadius}),
		builtin: "L.CRS.EPSG3395",
	}
	EPSG4326 = &CRS{
		Code:            CodeEPSG4326,
		Proj4Def:        "+proj=longlat +datum=WGS84 +no_defs",
		Transformation:  Transformation{A: 1.0 / 180, B: 1, C: -1.0 / 180, D: 0.5},
		Projector:       LonLat{},
		ProjectedBounds: nums.NewBounds(nums.Point{X: -180, Y: -90}, nums.Point{X: 180, Y: 90}),
		builtin:         "L.CRS.EPSG4326",
	}
)

var mercatorTransformation = func() Transformation {
	scale := 0.5 / (math.Pi * nums.EarthRadius)
	return Transformation{A: scale, B: 0.5, C: -scale, D: 0.5}
}()

// Resolve returns the CRS for code. The well-known codes return the
// built-in values and ignore params, any other code is derived from params.
func Resolve(code string, params Params) (*CRS, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case CodeEPSG3857:
		return EPSG3857, nil
	case CodeEPSG3395:
		return EPSG3395, nil
	case CodeEPSG4326:
		return EPSG4326, nil
	}
	return Define(code, params)
}

// Define derives a custom CRS, resolution(z) = MaxResolution / 2^z for z in [MinZoom, MaxZoom].
func Define(code string, params Params) (*CRS, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: empty crs code", ErrInvalidProjection)
	}
	if strings.TrimSpace(params.Proj4Def) == "" {
		return nil, fmt.Errorf("%w: %s has no proj4 definition", ErrInvalidProjection, code)
	}
	if params.MinZoom < 0 {
		return nil, fmt.Errorf("%w: %s minZoom %d is negative", ErrInvalidProjection, code, params.MinZoom)
	}
	if params.MinZoom > params.MaxZoom {
		return nil, fmt.Errorf("%w: %s minZoom %d > maxZoom %d", ErrInvalidProjection, code, params.MinZoom, params.MaxZoom)
	}
	if math.IsNaN(params.MaxResolution) || math.IsInf(params.MaxResolution, 0) || params.MaxResolution <= 0 {
		return nil, fmt.Errorf("%w: %s maxResolution %v", ErrInvalidProjection, code, params.MaxResolution)
	}
	if !finitePoint(params.Origin) || !finitePoint(params.ProjectedBounds.Min) || !finitePoint(params.ProjectedBounds.Max) {
		return nil, fmt.Errorf("%w: %s origin or bounds is not finite", ErrInvalidProjection, code)
	}
	projector, err := NewProjector(code, params.Proj4Def)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrInvalidProjection, code, err.Error())
	}

	resolutions := make([]float64, 0, params.MaxZoom-params.MinZoom+1)
	for zoom := params.MinZoom; zoom <= params.MaxZoom; zoom++ {
		resolutions = append(resolutions, params.MaxResolution/math.Pow(2, float64(zoom)))
	}
	return &CRS{
		Code:            code,
		Proj4Def:        params.Proj4Def,
		Origin:          params.Origin,
		Resolutions:     resolutions,
		ProjectedBounds: params.ProjectedBounds,
		Transformation:  Transformation{A: 1, B: -params.Origin.X, C: -1, D: params.Origin.Y},
		Projector:       projector,
		minZoom:         params.MinZoom,
	}, nil
}

func finitePoint(p nums.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// IsBuiltin reports whether c is one of the well-known CRS values.
func (c *CRS) IsBuiltin() bool {
	return c.builtin != ""
}

// Resolution returns meters per pixel at zoom.
// Zoom levels outside the derived table are extrapolated.
func (c *CRS) Resolution(zoom int) float64 {
	if c.IsBuiltin() {
		switch c.Code {
		case CodeEPSG3857, CodeEPSG3395:
			return nums.Resolution(zoom)
		}
		return 1 / (c.Scale(zoom) * c.Transformation.A)
	}
	if idx := zoom - c.minZoom; idx >= 0 && idx < len(c.Resolutions) {
		return c.Resolutions[idx]
	}
	base := c.Resolutions[0] * math.Pow(2, float64(c.minZoom))
	return base / math.Pow(2, float64(zoom))
}

// Scale returns the pixels per projected unit at zoom.
func (c *CRS) Scale(zoom int) float64 {
	if c.IsBuiltin() {
		return nums.TileSize * math.Pow(2, float64(zoom))
	}
	return 1 / c.Resolution(zoom)
}

func (c *CRS) Project(ll nums.LatLng) nums.Point {
	return c.Projector.Project(ll)
}

func (c *CRS) Unproject(p nums.Point) nums.LatLng {
	return c.Projector.Unproject(p)
}

// LatLngToPoint returns the pixel position of ll at zoom.
func (c *CRS) LatLngToPoint(ll nums.LatLng, zoom int) nums.Point {
	return c.Transformation.Transform(c.Project(ll), c.Scale(zoom))
}

// PointToLatLng is the inverse of LatLngToPoint.
func (c *CRS) PointToLatLng(p nums.Point, zoom int) nums.LatLng {
	return c.Unproject(c.Transformation.Untransform(p, c.Scale(zoom)))
}

// PixelBounds returns the projected bounds expressed in pixels at zoom.
func (c *CRS) PixelBounds(zoom int) nums.Bounds {
	s := c.Scale(zoom)
	return nums.NewBounds(
		c.Transformation.Transform(c.ProjectedBounds.Min, s),
		c.Transformation.Transform(c.ProjectedBounds.Max, s))
}

func (c *CRS) String() string {
	return c.Code
}

// Equal reports whether c and o describe the same coordinate system.
func (c *CRS) Equal(o *CRS) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil {
		return false
	}
	return c.Code == o.Code &&
		c.Proj4Def == o.Proj4Def &&
		c.Origin == o.Origin &&
		c.ProjectedBounds == o.ProjectedBounds &&
		c.minZoom == o.minZoom &&
		c.builtin == o.builtin &&
		slices.Equal(c.Resolutions, o.Resolutions)
}
