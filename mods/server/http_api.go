package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/machbase/neo-polarmap/mods/controller"
	"github.com/machbase/neo-polarmap/mods/layer"
	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/machbase/neo-polarmap/mods/polarmap"
	"github.com/machbase/neo-polarmap/mods/projection"
	"github.com/machbase/neo-polarmap/mods/util/loop"
)

// callTimeout bounds the wait for a session loop.
const callTimeout = 5 * time.Second

var (
	errBadRequest      = errors.New("bad request")
	errOverlayNotFound = errors.New("overlay not found")
	errTooLarge        = errors.New("request entity too large")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w, %s", errBadRequest, fmt.Sprintf(format, args...))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, projection.ErrNotFound), errors.Is(err, errOverlayNotFound):
		return http.StatusNotFound
	case errors.Is(err, loop.ErrClosed), errors.Is(err, polarmap.ErrClosed):
		return http.StatusGone
	case errors.Is(err, errBadRequest), errors.Is(err, polarmap.ErrLocateDisabled):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrSwitchInProgress):
		return http.StatusConflict
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func replyError(ctx *gin.Context, tick time.Time, err error) {
	ctx.JSON(statusOf(err), gin.H{
		"success": false,
		"reason":  err.Error(),
		"elapse":  time.Since(tick).String(),
	})
}

func replyData(ctx *gin.Context, tick time.Time, status int, data any) {
	ctx.JSON(status, gin.H{
		"success": true,
		"reason":  "success",
		"elapse":  time.Since(tick).String(),
		"data":    data,
	})
}

// bindOptionalJSON decodes the body into v, an empty body leaves v untouched.
func bindOptionalJSON(ctx *gin.Context, v any) error {
	if ctx.Request.ContentLength == 0 {
		return nil
	}
	if err := ctx.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("%s", err.Error())
	}
	return nil
}

func bindJSON(ctx *gin.Context, v any) error {
	if err := ctx.ShouldBindJSON(v); err != nil {
		return badRequest("%s", err.Error())
	}
	return nil
}

type ProjectionInfo struct {
	*projection.Definition
	// CRSScript declares the Proj4Leaflet CRS as a javascript variable named crs.
	CRSScript   string         `json:"crsScript"`
	TileOptions map[string]any `json:"tileOptions"`
}

func NewProjectionInfo(def *projection.Definition) (*ProjectionInfo, error) {
	c, err := def.ResolveCRS()
	if err != nil {
		return nil, err
	}
	return &ProjectionInfo{
		Definition:  def,
		CRSScript:   c.MarshalJS("crs"),
		TileOptions: def.TileOptions(),
	}, nil
}

func (svr *Server) handleProjections(ctx *gin.Context) {
	tick := time.Now()
	list := []*projection.Definition{}
	for def := range svr.registry.All() {
		list = append(list, def)
	}
	replyData(ctx, tick, http.StatusOK, list)
}

func (svr *Server) handleProjection(ctx *gin.Context) {
	tick := time.Now()
	def, err := svr.registry.Get(ctx.Param("id"))
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	info, err := NewProjectionInfo(def)
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	replyData(ctx, tick, http.StatusOK, info)
}

type SessionRequest struct {
	Hash       string `json:"hash"`
	Projection string `json:"projection"`
	Locate     *bool  `json:"locate"`
	Permalink  *bool  `json:"permalink"`
}

type SessionInfo struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	State     polarmap.State `json:"state"`
}

func (svr *Server) handleSessionCreate(ctx *gin.Context) {
	tick := time.Now()
	req := SessionRequest{}
	if err := bindOptionalJSON(ctx, &req); err != nil {
		replyError(ctx, tick, err)
		return
	}
	if req.Projection != "" {
		if _, err := svr.registry.Get(req.Projection); err != nil {
			replyError(ctx, tick, badRequest("%s", err.Error()))
			return
		}
	}
	callCtx, cancel := context.WithTimeout(ctx.Request.Context(), callTimeout)
	defer cancel()
	s, err := svr.sessions.Create(callCtx, func(o *polarmap.Options) {
		if req.Hash != "" {
			o.Hash = req.Hash
		}
		if req.Projection != "" {
			o.DefaultProjection = req.Projection
		}
		if req.Locate != nil {
			o.Locate = *req.Locate
		}
		if req.Permalink != nil {
			o.Permalink = *req.Permalink
		}
	})
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	st, err := s.State(callCtx, nil)
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	svr.log.Debugf("session %s created", s.ID)
	replyData(ctx, tick, http.StatusCreated, SessionInfo{ID: s.ID, CreatedAt: s.CreatedAt, State: st})
}

func (svr *Server) handleSessionDelete(ctx *gin.Context) {
	tick := time.Now()
	if err := svr.sessions.Delete(ctx.Param("id")); err != nil {
		replyError(ctx, tick, err)
		return
	}
	replyData(ctx, tick, http.StatusOK, nil)
}

// doSession runs fn on the loop of the session named by the path and
// replies with the state of the map after it.
func (svr *Server) doSession(ctx *gin.Context, tick time.Time, fn func(pm *polarmap.PolarMap) error) {
	s, err := svr.sessions.Get(ctx.Param("id"))
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	callCtx, cancel := context.WithTimeout(ctx.Request.Context(), callTimeout)
	defer cancel()
	st, err := s.State(callCtx, fn)
	if err != nil {
		replyError(ctx, tick, err)
		return
	}
	replyData(ctx, tick, http.StatusOK, st)
}

func (svr *Server) handleSessionState(ctx *gin.Context) {
	svr.doSession(ctx, time.Now(), nil)
}

type RotateRequest struct {
	Dir string `json:"dir"`
}

func (svr *Server) handleSessionRotate(ctx *gin.Context) {
	tick := time.Now()
	req := RotateRequest{}
	if err := bindJSON(ctx, &req); err != nil {
		replyError(ctx, tick, err)
		return
	}
	var rotate func(pm *polarmap.PolarMap) bool
	switch strings.ToLower(req.Dir) {
	case "cw", "clockwise":
		rotate = (*polarmap.PolarMap).RotateCW
	case "ccw", "counterclockwise":
		rotate = (*polarmap.PolarMap).RotateCCW
	default:
		replyError(ctx, tick, badRequest("unknown direction %q", req.Dir))
		return
	}
	svr.doSession(ctx, tick, func(pm *polarmap.PolarMap) error {
		rotate(pm)
		return nil
	})
}

type ProjectionRequest struct {
	ID string `json:"id"`
}

func (svr *Server) handleSessionProjection(ctx *gin.Context) {
	tick := time.Now()
	req := ProjectionRequest{}
	if err := bindJSON(ctx, &req); err != nil {
		replyError(ctx, tick, err)
		return
	}
	if req.ID == "" {
		replyError(ctx, tick, badRequest("projection id is missing"))
		return
	}
	svr.doSession(ctx, tick, func(pm *polarmap.PolarMap) error {
		return pm.SetBaseLayer(req.ID)
	})
}

type ViewRequest struct {
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	Zoom *int     `json:"zoom"`
}

func (svr *Server) handleSessionView(ctx *gin.Context) {
	tick := time.Now()
	req := ViewRequest{}
	if err := bindJSON(ctx, &req); err != nil {
		replyError(ctx, tick, err)
		return
	}
	if req.Lat == nil || req.Lon == nil {
		replyError(ctx, tick, badRequest("lat and lon are required"))
		return
	}
	center := nums.LatLng{Lat: *req.Lat, Lng: *req.Lon}
	if !validLatLng(center) {
		replyError(ctx, tick, badRequest("invalid center %v", center))
		return
	}
	svr.doSession(ctx, tick, func(pm *polarmap.PolarMap) error {
		zoom := pm.Map.View().Zoom
		if req.Zoom != nil {
			zoom = *req.Zoom
		}
		return pm.SetView(center, zoom)
	})
}

type HashRequest struct {
	Hash string `json:"hash"`
}

func (svr *Server) handleSessionHash(ctx *gin.Context) {
	tick := time.Now()
	req := HashRequest{}
	if err := bindJSON(ctx, &req); err != nil {
		replyError(ctx, tick, err)
		return
	}
	svr.doSession(ctx, tick, func(pm *polarmap.PolarMap) error {
		if err := pm.Navigate(req.Hash); err != nil {
			return badRequest("%s", err.Error())
		}
		return nil
	})
}

type LocateRequest struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Accuracy float64  `json:"accuracy"`
	Error    string   `json:"error"`
}

func (svr *Server) handleSessionLocate(ctx *gin.Context) {
	tick := time.Now()
	req := LocateRequest{}
	if err := bindJSON(ctx, &req); err != nil {
		replyError(ctx, tick, err)
		return
	}
	if req.Error != "" {
		svr.doSession(ctx, tick, func(pm *polarmap.PolarMap) error {
			return pm.LocationError(errors.New(req.Error))
		})
		return
	}
	if req.Lat == nil || req.Lon == nil {
		replyError(ctx, tick, badRequest("lat and lon are required"))
		return
	}
	center := nums.LatLng{Lat: *req.Lat, Lng: *req.Lon}
	if !validLatLng(center) || req.Accuracy < 0 {
		replyError(ctx, tick, badRequest("invalid location %v", center))
		return
	}
	svr.doSession(ctx, tick, func(pm *polarmap.PolarMap) error {
		return pm.LocationFound(center, req.Accuracy)
	})
}

type TouchEvent struct {
	Phase    string  `json:"phase"`
	Rotation float64 `json:"rotation"`
}

type TouchRequest struct {
	Events []TouchEvent `json:"events"`
}

func (svr *Server) handleSessionTouch(ctx *gin.Context) {
	tick := time.Now()
	req := TouchRequest{}
	if err := bindJSON(ctx, &req); err != nil {
		replyError(ctx, tick, err)
		return
	}
	for i, ev := range req.Events {
		switch polarmap.TouchPhase(ev.Phase) {
		case polarmap.TouchStart, polarmap.TouchMove, polarmap.TouchEnd:
		default:
			replyError(ctx, tick, badRequest("events[%d] unknown phase %q", i, ev.Phase))
			return
		}
	}
	svr.doSession(ctx, tick, func(pm *polarmap.PolarMap) error {
		for _, ev := range req.Events {
			if err := pm.Touch(polarmap.TouchPhase(ev.Phase), ev.Rotation); err != nil {
				return err
			}
		}
		return nil
	})
}

// handleOverlayAdd attaches the GeoJSON FeatureCollection of the body
// as an overlay named by the "name" query parameter.
func (svr *Server) handleOverlayAdd(ctx *gin.Context) {
	tick := time.Now()
	name := ctx.Query("name")
	if name == "" {
		replyError(ctx, tick, badRequest("overlay name is missing"))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, svr.maxOverlayBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			replyError(ctx, tick, fmt.Errorf("%w, overlay exceeds %d bytes", errTooLarge, tooLarge.Limit))
		} else {
			replyError(ctx, tick, badRequest("%s", err.Error()))
		}
		return
	}
	group, err := layer.FromGeoJSON("overlay-"+name, body)
	if err != nil {
		replyError(ctx, tick, badRequest("invalid geojson, %s", err.Error()))
		return
	}
	svr.doSession(ctx, tick, func(pm *polarmap.PolarMap) error {
		if _, ok := findOverlay(pm, name); ok {
			return badRequest("overlay %q already exists", name)
		}
		pm.AddLayer(group, name)
		return nil
	})
}

func (svr *Server) handleOverlayRemove(ctx *gin.Context) {
	tick := time.Now()
	name := ctx.Param("name")
	svr.doSession(ctx, tick, func(pm *polarmap.PolarMap) error {
		o, ok := findOverlay(pm, name)
		if !ok {
			return fmt.Errorf("%w: %s", errOverlayNotFound, name)
		}
		pm.RemoveLayer(o.Layer)
		return nil
	})
}

func findOverlay(pm *polarmap.PolarMap, name string) (polarmap.Overlay, bool) {
	for _, o := range pm.Overlays() {
		if o.Name == name {
			return o, true
		}
	}
	return polarmap.Overlay{}, false
}

func validLatLng(ll nums.LatLng) bool {
	if !ll.IsValid() {
		return false
	}
	return math.Abs(ll.Lat) <= 90 && math.Abs(ll.Lng) <= 180
}
