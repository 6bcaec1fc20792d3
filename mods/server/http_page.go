package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/machbase/neo-polarmap/mods/polarmap"
)

var pageJSAssets = []string{
	"https://unpkg.com/leaflet@1.9.4/dist/leaflet.js",
	"https://unpkg.com/proj4@2.11.0/dist/proj4.js",
	"https://unpkg.com/proj4leaflet@1.0.2/src/proj4leaflet.js",
}

var pageCSSAssets = []string{
	"https://unpkg.com/leaflet@1.9.4/dist/leaflet.css",
}

var pageHeaderTemplate = `
{{ define "header" }}
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{ .PageTitle }}</title>
{{- range .JSAssets }}
    <script src="{{ . }}"></script>
{{- end }}
{{- range .CSSAssets }}
    <link href="{{ . }}" rel="stylesheet">
{{- end }}
</head>
{{ end }}
`

var pageBaseTemplate = `
{{- define "base" }}
<div class="polarmap_container">
    <div class="polarmap_item" id="{{ .MapID }}"></div>
    <div class="polarmap_controls">
    {{- range .Controls }}
    {{ . | safeHTML }}
    {{- end }}
    </div>
</div>

<script type="text/javascript">
    "use strict";
    {{- range .JSCodes }}
    {{ . | safeJS }}
    {{- end }}
</script>
{{ end }}
`

var pageHtmlTemplate = `{{- define "page" }}<!DOCTYPE html>
<html>
    {{- template "header" . }}
<body>
    {{- template "base" . }}
<style>
    html, body {margin: 0; height: 100%;}
    .polarmap_container {position: relative; width: 100%; height: 100%;}
    .polarmap_item {width: 100%; height: 100%;}
    .polarmap_controls {position: absolute; top: 10px; right: 10px; z-index: 1000; display: flex; flex-direction: column; gap: 8px; align-items: flex-end;}
    .polarmap_controls .leaflet-control-layers {background: #fff; padding: 6px 10px; border-radius: 4px;}
    .leaflet-control-rotation a {font-size: 18px; line-height: 26px;}
</style>
</body>
</html>
{{ end }}
`

// pageScript follows the session state on the watch websocket and sends
// the clicks and the touch gestures back to the session api.
var pageScript = `
    const base = window.location.origin;
    const api = base + "/api/sessions/" + sessionId;
    let active = null;
    let tiles = null;
    const map = L.map(mapId, {crs: crsTable[state.projection], center: state.view.center, zoom: state.view.zoom});
    function post(path, body) {
        return fetch(api + path, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)});
    }
    function apply(st) {
        if (st.projection !== active) {
            const def = projections[st.projection];
            if (tiles) { map.removeLayer(tiles); }
            map.options.crs = crsTable[st.projection];
            tiles = L.tileLayer(def.url, def.tileOptions).addTo(map);
            active = st.projection;
            document.querySelectorAll("input[name=leaflet-base-layers]").forEach((el) => { el.checked = el.value === active; });
        }
        map.setView(st.view.center, st.view.zoom, {reset: true});
        if (st.hash && window.location.hash !== st.hash) {
            history.replaceState(null, "", st.hash);
        }
    }
    apply(state);
    document.querySelector(".leaflet-control-rotation-cw").addEventListener("click", (e) => { e.preventDefault(); post("/rotate", {dir: "cw"}); map.getContainer().focus(); });
    document.querySelector(".leaflet-control-rotation-ccw").addEventListener("click", (e) => { e.preventDefault(); post("/rotate", {dir: "ccw"}); map.getContainer().focus(); });
    document.querySelectorAll("input[name=leaflet-base-layers]").forEach((el) => {
        el.addEventListener("change", () => post("/projection", {id: el.value}));
    });
    map.on("moveend", () => {
        const c = map.getCenter();
        post("/view", {lat: c.lat, lon: c.lng, zoom: map.getZoom()});
    });
    window.addEventListener("hashchange", () => post("/hash", {hash: window.location.hash}));
    let gesture = null;
    function touchRotation(e) {
        if (typeof e.rotation === "number") { return e.rotation; }
        if (!gesture || !gesture.angle0 || e.touches.length < 2) { return gesture ? gesture.last : 0; }
        const a = e.touches[0], b = e.touches[1];
        return Math.atan2(b.clientY - a.clientY, b.clientX - a.clientX) * 180 / Math.PI - gesture.angle0;
    }
    const container = map.getContainer();
    container.addEventListener("touchstart", (e) => {
        let angle0 = null;
        if (e.touches.length >= 2) {
            const a = e.touches[0], b = e.touches[1];
            angle0 = Math.atan2(b.clientY - a.clientY, b.clientX - a.clientX) * 180 / Math.PI;
        }
        gesture = {angle0: angle0, last: 0, events: [{phase: "start", rotation: 0}]};
    });
    container.addEventListener("touchmove", (e) => {
        if (!gesture) { return; }
        gesture.last = touchRotation(e);
        gesture.events.push({phase: "move", rotation: gesture.last});
    });
    container.addEventListener("touchend", (e) => {
        if (!gesture) { return; }
        const rotation = typeof e.rotation === "number" ? e.rotation : gesture.last;
        gesture.events.push({phase: "end", rotation: rotation});
        post("/touch", {events: gesture.events});
        gesture = null;
    });
    const ws = new WebSocket(api.replace(/^http/, "ws") + "/watch");
    ws.onmessage = (msg) => {
        const m = JSON.parse(msg.data);
        if (m.type === "state") { apply(m.state); }
    };
    setInterval(() => { if (ws.readyState === WebSocket.OPEN) { ws.send(JSON.stringify({type: "ping", tick: Date.now()})); } }, 30000);
`

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"safeJS": func(s any) template.JS {
		return template.JS(fmt.Sprint(s))
	},
	"safeHTML": func(s any) template.HTML {
		return template.HTML(fmt.Sprint(s))
	},
}).Parse(pageHeaderTemplate + pageBaseTemplate + pageHtmlTemplate))

type page struct {
	PageTitle string
	MapID     string
	JSAssets  []string
	CSSAssets []string
	Controls  []string
	JSCodes   []string
}

type pageProjection struct {
	URL         string         `json:"url"`
	TileOptions map[string]any `json:"tileOptions"`
}

func (svr *Server) handleMapPage(ctx *gin.Context) {
	tick := time.Now()
	s, err := svr.sessions.Get(ctx.Param("id"))
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	callCtx, cancel := context.WithTimeout(ctx.Request.Context(), callTimeout)
	defer cancel()
	var st polarmap.State
	var controls []string
	err = s.Do(callCtx, func(pm *polarmap.PolarMap) error {
		st = pm.State()
		for _, c := range pm.Map.Controls() {
			controls = append(controls, c.HTML())
		}
		return nil
	})
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	content, err := svr.renderPage(s.ID, st, controls)
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", content)
}

func (svr *Server) renderPage(sessionID string, st polarmap.State, controls []string) ([]byte, error) {
	crsLines := []string{"const crsTable = {};"}
	projections := map[string]pageProjection{}
	for def := range svr.registry.All() {
		c, err := def.ResolveCRS()
		if err != nil {
			svr.log.Warnf("page %s skip projection %s, %s", sessionID, def.ID, err.Error())
			continue
		}
		varname := "crs_" + strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
				return r
			}
			return '_'
		}, def.ID)
		crsLines = append(crsLines, c.MarshalJS(varname))
		idJSON, _ := json.Marshal(def.ID)
		crsLines = append(crsLines, fmt.Sprintf("crsTable[%s] = %s;", idJSON, varname))
		projections[def.ID] = pageProjection{URL: def.TileURL, TileOptions: def.TileOptions()}
	}
	projJSON, err := json.Marshal(projections)
	if err != nil {
		return nil, err
	}
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	mapID := "polarmap_" + sessionID
	ids, _ := json.Marshal([]string{sessionID, mapID})
	p := page{
		PageTitle: "Polar Map " + sessionID,
		MapID:     mapID,
		JSAssets:  pageJSAssets,
		CSSAssets: pageCSSAssets,
		Controls:  controls,
		JSCodes: []string{
			strings.Join(crsLines, "\n    "),
			fmt.Sprintf("const [sessionId, mapId] = %s;", ids),
			fmt.Sprintf("const projections = %s;", projJSON),
			fmt.Sprintf("const state = %s;", stateJSON),
			pageScript,
		},
	}
	buf := &bytes.Buffer{}
	if err := pageTemplate.ExecuteTemplate(buf, "page", p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
