package layer

import (
	"iter"

	"github.com/machbase/neo-polarmap/mods/crs"
)

type Kind string

const (
	KindTile   Kind = "tile"
	KindVector Kind = "vector"
	KindGroup  Kind = "group"
)

// Layer is anything a map can hold.
type Layer interface {
	ID() string
	Kind() Kind
}

// BaseRaster is a full coverage tile layer providing the map background.
// Base rasters are replaced, not reprojected, when the map changes its CRS.
type BaseRaster interface {
	Layer
	IsBaseRaster() bool
}

// Reprojector recomputes the screen geometry of a layer for a new CRS.
type Reprojector interface {
	Reproject(c *crs.CRS, zoom int)
}

// Redrawer reloads a layer whose content does not depend on the CRS.
type Redrawer interface {
	Redraw()
}

// Composite holds nested layers.
type Composite interface {
	Children() iter.Seq[Layer]
}

func IsBaseRaster(l Layer) bool {
	br, ok := l.(BaseRaster)
	return ok && br.IsBaseRaster()
}
