package polarmap

import (
	"bytes"
	"html/template"
)

var layersTemplate = template.Must(template.New("layers").Parse(`<div class="leaflet-control-layers leaflet-control-layers-expanded">
<div class="leaflet-control-layers-base">
{{- range .Bases }}
<label><input type="radio" class="leaflet-control-layers-selector" name="leaflet-base-layers" value="{{ .ID }}"{{ if .Checked }} checked{{ end }}><span> {{ .Name }}</span></label>
{{- end }}
</div>
{{- if .Overlays }}
<div class="leaflet-control-layers-separator"></div>
<div class="leaflet-control-layers-overlays">
{{- range .Overlays }}
<label><input type="checkbox" class="leaflet-control-layers-selector" value="{{ .ID }}"{{ if .Checked }} checked{{ end }}><span> {{ .Name }}</span></label>
{{- end }}
</div>
{{- end }}
</div>`))

// LayersControl lists the projections and the named overlays of a polar map.
type LayersControl struct {
	pm *PolarMap
}

type layerEntry struct {
	ID      string
	Name    string
	Checked bool
}

func newLayersControl(pm *PolarMap) *LayersControl {
	return &LayersControl{pm: pm}
}

func (lc *LayersControl) Position() string { return "topright" }

func (lc *LayersControl) HTML() string {
	data := struct {
		Bases    []layerEntry
		Overlays []layerEntry
	}{}
	active := lc.pm.controller.ActiveID()
	for def := range lc.pm.registry.All() {
		data.Bases = append(data.Bases, layerEntry{ID: def.ID, Name: def.Name, Checked: def.ID == active})
	}
	for _, o := range lc.pm.overlays {
		data.Overlays = append(data.Overlays, layerEntry{ID: o.Layer.ID(), Name: o.Name, Checked: lc.pm.Map.HasLayer(o.Layer)})
	}
	buf := &bytes.Buffer{}
	if err := layersTemplate.Execute(buf, data); err != nil {
		lc.pm.log.Warnf("layers control, %s", err.Error())
		return ""
	}
	return buf.String()
}
