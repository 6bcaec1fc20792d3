package polarmap

import (
	"github.com/machbase/neo-polarmap/mods/mapview"
	"github.com/machbase/neo-polarmap/mods/nums"
)

// State is a snapshot of a polar map.
type State struct {
	ID         string       `json:"id"`
	Projection string       `json:"projection"`
	CRS        string       `json:"crs"`
	View       mapview.View `json:"view"`
	Hash       string       `json:"hash,omitempty"`
	Layers     []string     `json:"layers"`
	Overlays   []string     `json:"overlays,omitempty"`
	Location   *nums.LatLng `json:"location,omitempty"`
	Accuracy   float64      `json:"accuracy,omitempty"`
	CenterTile *TileRef     `json:"centerTile,omitempty"`
}

// TileRef addresses the base layer tile under the center of the view.
type TileRef struct {
	Z   int    `json:"z"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
	URL string `json:"url"`
}

func (pm *PolarMap) State() State {
	st := State{
		ID:         pm.id,
		Projection: pm.controller.ActiveID(),
		CRS:        pm.Map.CRS().Code,
		View:       pm.Map.View(),
		Hash:       pm.Hash(),
		Layers:     []string{},
	}
	for l := range pm.Map.Layers() {
		st.Layers = append(st.Layers, l.ID())
	}
	for _, o := range pm.overlays {
		st.Overlays = append(st.Overlays, o.Name)
	}
	if pm.userLocation != nil && pm.Map.HasLayer(pm.userLocation) {
		loc := pm.located
		st.Location = &loc
		st.Accuracy = pm.accuracy
	}
	st.CenterTile = pm.centerTile()
	return st
}

// centerTile is nil when the center lies outside the tile grid of the CRS.
func (pm *PolarMap) centerTile() *TileRef {
	active := pm.controller.Active()
	if active == nil {
		return nil
	}
	zoom := pm.Map.View().Zoom
	px := pm.Map.PixelCenter()
	if !pm.Map.CRS().PixelBounds(zoom).Contains(px) {
		return nil
	}
	x, y := nums.PixelsToTile(px.X, px.Y)
	return &TileRef{Z: zoom, X: x, Y: y, URL: pm.controller.TileLayer(active).TileURL(zoom, x, y)}
}
