package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/machbase/neo-polarmap/mods/logging"
	"github.com/machbase/neo-polarmap/mods/polarmap"
	"github.com/machbase/neo-polarmap/mods/projection"
	gometrics "github.com/rcrowley/go-metrics"
)

// Factory
func New(registry *projection.Registry, options ...Option) (*Server, error) {
	s := &Server{
		log:             logging.GetLog("httpd"),
		registry:        registry,
		mapOpts:         polarmap.DefaultOptions(),
		sessionTTL:      30 * time.Minute,
		maxSessions:     1000,
		maxOverlayBytes: 4 * 1024 * 1024,
		metrics:         gometrics.DefaultRegistry,
		linger:          -1,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.registry == nil || s.registry.Len() == 0 {
		return nil, projection.ErrEmptyRegistry
	}
	if _, err := s.registry.Get(s.mapOpts.DefaultProjection); err != nil {
		return nil, fmt.Errorf("default projection, %w", err)
	}
	sessions, err := NewSessionStore(s.registry, s.mapOpts, s.sessionTTL, s.maxSessions)
	if err != nil {
		return nil, err
	}
	s.sessions = sessions
	return s, nil
}

type Server struct {
	log      logging.Log
	registry *projection.Registry
	sessions *SessionStore
	mapOpts  polarmap.Options
	metrics  gometrics.Registry

	listenAddresses []string
	httpServer      *http.Server
	listeners       []net.Listener

	sessionTTL            time.Duration
	maxSessions           int
	maxOverlayBytes       int64
	enableCORS            bool
	debugMode             bool
	debugLogFilterLatency time.Duration
	linger                int
	keepAlive             int
}

func (svr *Server) Sessions() *SessionStore {
	return svr.sessions
}

func (svr *Server) Start() error {
	if svr.debugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var connContext func(context.Context, net.Conn) context.Context
	if runtime.GOOS != "windows" {
		connContext = func(ctx context.Context, c net.Conn) context.Context {
			if tcpCon, ok := c.(*net.TCPConn); ok && tcpCon != nil {
				tcpCon.SetNoDelay(true)
				if svr.keepAlive > 0 {
					tcpCon.SetKeepAlive(true)
					tcpCon.SetKeepAlivePeriod(time.Duration(svr.keepAlive) * time.Second)
				}
				if svr.linger >= 0 {
					tcpCon.SetLinger(svr.linger)
				}
			}
			return ctx
		}
	}
	svr.httpServer = &http.Server{
		ConnContext: connContext,
		Handler:     svr.Router(),
	}
	svr.sessions.Start()

	for _, listen := range svr.listenAddresses {
		lsnr, err := MakeListener(listen)
		if err != nil {
			return fmt.Errorf("cannot start with failed listener, %s", err.Error())
		}
		svr.listeners = append(svr.listeners, lsnr)
		go svr.httpServer.Serve(lsnr)
		svr.log.Infof("HTTP Listen %s", listen)
	}
	return nil
}

func (svr *Server) Stop() {
	if svr.httpServer == nil {
		return
	}
	svr.log.Infof("gracefully stopping server")
	ctx, cancelFunc := context.WithTimeout(context.Background(), 3*time.Second)
	svr.httpServer.Shutdown(ctx)
	cancelFunc()
	svr.httpServer.Close()
	svr.sessions.Stop()
	svr.httpServer = nil
	svr.listeners = nil
}

// AdvertiseAddress returns the first tcp address the server listens on,
// as an http url.
func (svr *Server) AdvertiseAddress() string {
	for _, lsnr := range svr.listeners {
		addr := lsnr.Addr()
		if addr.Network() != "tcp" {
			continue
		}
		host := addr.String()
		if strings.HasPrefix(host, "0.0.0.0:") {
			host = "127.0.0.1:" + strings.TrimPrefix(host, "0.0.0.0:")
		} else if strings.HasPrefix(host, "[::]:") {
			host = "127.0.0.1:" + strings.TrimPrefix(host, "[::]:")
		}
		return "http://" + host
	}
	return ""
}

func (svr *Server) DebugMode() (bool, time.Duration) {
	return svr.debugMode, svr.debugLogFilterLatency
}

func (svr *Server) SetDebugMode(debug bool, filterLatency time.Duration) {
	svr.debugMode = debug
	svr.debugLogFilterLatency = filterLatency
}

func (svr *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RecoveryWithLogging(svr.log))
	r.Use(HttpLogger("http-log", &svr.debugMode, &svr.debugLogFilterLatency))
	if svr.enableCORS {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:    []string{"Origin", "Content-Type", "Content-Length", "Accept"},
			MaxAge:          12 * time.Hour,
		}))
	}
	r.Use(MetricsInterceptor())

	r.GET("/healthz", svr.handleHealthz)
	r.GET("/debug/metrics", svr.handleMetrics)

	api := r.Group("/api")
	api.GET("/projections", svr.handleProjections)
	api.GET("/projections/:id", svr.handleProjection)
	api.POST("/sessions", svr.handleSessionCreate)
	api.GET("/sessions/:id", svr.handleSessionState)
	api.DELETE("/sessions/:id", svr.handleSessionDelete)
	api.POST("/sessions/:id/rotate", svr.handleSessionRotate)
	api.POST("/sessions/:id/projection", svr.handleSessionProjection)
	api.POST("/sessions/:id/view", svr.handleSessionView)
	api.POST("/sessions/:id/hash", svr.handleSessionHash)
	api.POST("/sessions/:id/locate", svr.handleSessionLocate)
	api.POST("/sessions/:id/touch", svr.handleSessionTouch)
	api.POST("/sessions/:id/overlays", svr.handleOverlayAdd)
	api.DELETE("/sessions/:id/overlays/:name", svr.handleOverlayRemove)
	api.GET("/sessions/:id/watch", svr.handleSessionWatch)

	r.GET("/map/:id", svr.handleMapPage)
	return r
}

func (svr *Server) handleHealthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"success": true, "reason": "success", "data": gin.H{"sessions": svr.sessions.Len()}})
}

func (svr *Server) handleMetrics(ctx *gin.Context) {
	svr.gatherRuntime()
	ctx.Header("Content-Type", "application/json")
	ctx.Status(http.StatusOK)
	gometrics.WriteJSONOnce(svr.metrics, ctx.Writer)
}
