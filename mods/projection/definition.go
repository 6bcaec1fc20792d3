package projection

import (
	"fmt"
	"strings"

	"github.com/machbase/neo-polarmap/mods/config"
	"github.com/machbase/neo-polarmap/mods/crs"
	"github.com/machbase/neo-polarmap/mods/nums"
)

// Definition describes one selectable projection and its base tile layer.
// Definitions are treated as immutable once they are in a Registry.
type Definition struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	CRSCode         string             `json:"crs"`
	Proj4Def        string             `json:"proj4"`
	TileURL         string             `json:"url"`
	Subdomains      []string           `json:"subdomains,omitempty"`
	MinZoom         int                `json:"minZoom"`
	MaxZoom         int                `json:"maxZoom"`
	MaxResolution   float64            `json:"maxResolution"`
	Origin          nums.Point         `json:"origin"`
	ProjectedBounds nums.Bounds        `json:"projectedBounds"`
	Bounds          *nums.LatLngBounds `json:"bounds,omitempty"`
	Center          nums.LatLng        `json:"center"`
	Zoom            int                `json:"zoom"`
	Attribution     string             `json:"attribution,omitempty"`
	TMS             bool               `json:"tms,omitempty"`
	NoWrap          bool               `json:"noWrap,omitempty"`
}

func (d *Definition) String() string {
	return fmt.Sprintf("%s(%s)", d.ID, d.CRSCode)
}

// CRSParams returns the parameters the CRS of d is derived from.
func (d *Definition) CRSParams() crs.Params {
	return crs.Params{
		Proj4Def:        d.Proj4Def,
		MinZoom:         d.MinZoom,
		MaxZoom:         d.MaxZoom,
		MaxResolution:   d.MaxResolution,
		Origin:          d.Origin,
		ProjectedBounds: d.ProjectedBounds,
	}
}

func (d *Definition) ResolveCRS() (*crs.CRS, error) {
	return crs.Resolve(d.CRSCode, d.CRSParams())
}

// TileOptions are the Leaflet tile layer options of d.
func (d *Definition) TileOptions() map[string]any {
	opts := map[string]any{
		"minZoom": d.MinZoom,
		"maxZoom": d.MaxZoom,
	}
	if len(d.Subdomains) > 0 {
		opts["subdomains"] = strings.Join(d.Subdomains, "")
	}
	if d.Attribution != "" {
		opts["attribution"] = d.Attribution
	}
	if d.TMS {
		opts["tms"] = true
	}
	if d.NoWrap {
		opts["noWrap"] = true
	}
	if !d.Bounds.IsEmpty() {
		opts["bounds"] = [][]float64{d.Bounds.SouthWest.Array(), d.Bounds.NorthEast.Array()}
	}
	return opts
}

// FromConfig converts a projection block into a Definition.
func FromConfig(pc config.ProjectionConfig) (*Definition, error) {
	def := &Definition{
		ID:            pc.ID,
		Name:          pc.Name,
		CRSCode:       pc.CRS,
		Proj4Def:      pc.Proj4,
		TileURL:       pc.URL,
		Subdomains:    pc.Subdomains,
		MinZoom:       pc.MinZoom,
		MaxZoom:       pc.MaxZoom,
		MaxResolution: pc.MaxResolution,
		Origin:        pc.Origin,
		Center:        pc.Center,
		Zoom:          pc.Zoom,
		Attribution:   pc.Attribution,
		TMS:           pc.TMS,
		NoWrap:        pc.NoWrap,
	}
	switch len(pc.ProjectedBounds) {
	case 0:
	case 2:
		def.ProjectedBounds = nums.NewBounds(pc.ProjectedBounds[0], pc.ProjectedBounds[1])
	default:
		return nil, fmt.Errorf("projection %q projected_bounds needs 2 corners", pc.ID)
	}
	switch len(pc.Bounds) {
	case 0:
	case 2:
		def.Bounds = nums.NewLatLngBounds(pc.Bounds[0], pc.Bounds[1])
	default:
		return nil, fmt.Errorf("projection %q bounds needs 2 corners", pc.ID)
	}
	if def.Name == "" {
		def.Name = def.ID
	}
	return def, nil
}

// ToConfig is the inverse of FromConfig.
func ToConfig(def *Definition) config.ProjectionConfig {
	pc := config.ProjectionConfig{
		ID:            def.ID,
		Name:          def.Name,
		CRS:           def.CRSCode,
		Proj4:         def.Proj4Def,
		URL:           def.TileURL,
		Subdomains:    def.Subdomains,
		MinZoom:       def.MinZoom,
		MaxZoom:       def.MaxZoom,
		MaxResolution: def.MaxResolution,
		Origin:        def.Origin,
		Center:        def.Center,
		Zoom:          def.Zoom,
		Attribution:   def.Attribution,
		TMS:           def.TMS,
		NoWrap:        def.NoWrap,
	}
	if !def.ProjectedBounds.IsEmpty() {
		pc.ProjectedBounds = []nums.Point{def.ProjectedBounds.Min, def.ProjectedBounds.Max}
	}
	if !def.Bounds.IsEmpty() {
		pc.Bounds = []nums.LatLng{def.Bounds.SouthWest, def.Bounds.NorthEast}
	}
	return pc
}
