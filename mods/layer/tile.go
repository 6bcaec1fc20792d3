package layer

import (
	"math"
	"strconv"
	"strings"

	"github.com/machbase/neo-polarmap/mods/projection"
)

// Tile is a raster layer drawn from a {z}/{x}/{y} url template.
type Tile struct {
	id      string
	def     *projection.Definition
	base    bool
	redraws int
}

var _ BaseRaster = (*Tile)(nil)
var _ Redrawer = (*Tile)(nil)

// NewBaseTile returns the base raster layer of def.
func NewBaseTile(def *projection.Definition) *Tile {
	return &Tile{id: "tile:" + def.ID, def: def, base: true}
}

// NewOverlayTile returns a tile layer drawn over the base layer.
func NewOverlayTile(id string, def *projection.Definition) *Tile {
	return &Tile{id: id, def: def}
}

func (t *Tile) ID() string                         { return t.id }
func (t *Tile) Kind() Kind                         { return KindTile }
func (t *Tile) IsBaseRaster() bool                 { return t.base }
func (t *Tile) Definition() *projection.Definition { return t.def }
func (t *Tile) URLTemplate() string                { return t.def.TileURL }

// Redraw drops the cached tiles, the next render fetches them again.
func (t *Tile) Redraw() {
	t.redraws++
}

func (t *Tile) Redraws() int {
	return t.redraws
}

// TileURL expands the url template for a tile.
func (t *Tile) TileURL(z, x, y int) string {
	if t.def.TMS {
		y = int(math.Pow(2, float64(z))) - 1 - y
	}
	s := ""
	if len(t.def.Subdomains) > 0 {
		idx := (x + y) % len(t.def.Subdomains)
		if idx < 0 {
			idx += len(t.def.Subdomains)
		}
		s = t.def.Subdomains[idx]
	}
	return strings.NewReplacer(
		"{s}", s,
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(t.def.TileURL)
}
