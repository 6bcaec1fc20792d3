package server

import (
	"time"

	"github.com/machbase/neo-polarmap/mods/config"
	"github.com/machbase/neo-polarmap/mods/polarmap"
	gometrics "github.com/rcrowley/go-metrics"
)

type Option func(s *Server)

// ListenAddresses
func WithListenAddress(addrs ...string) Option {
	return func(s *Server) {
		s.listenAddresses = append(s.listenAddresses, addrs...)
	}
}

func WithDebugMode(debug bool, filterLatency time.Duration) Option {
	return func(s *Server) {
		s.debugMode = debug
		s.debugLogFilterLatency = filterLatency
	}
}

func WithCORS(enable bool) Option {
	return func(s *Server) {
		s.enableCORS = enable
	}
}

// WithSessionTTL closes sessions that are idle longer than ttl.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithMaxSessions limits the open sessions, the least recently used
// session is closed when a new one does not fit. 0 is unlimited.
func WithMaxSessions(n int) Option {
	return func(s *Server) {
		s.maxSessions = n
	}
}

// WithMaxOverlaySize limits the GeoJSON body of a new overlay.
func WithMaxOverlaySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxOverlayBytes = n
		}
	}
}

func WithMapOptions(opts polarmap.Options) Option {
	return func(s *Server) {
		s.mapOpts = opts
	}
}

func WithMetricsRegistry(r gometrics.Registry) Option {
	return func(s *Server) {
		s.metrics = r
	}
}

func WithLinger(linger int) Option {
	return func(s *Server) {
		s.linger = linger
	}
}

func WithKeepAlive(keepAlive int) Option {
	return func(s *Server) {
		s.keepAlive = keepAlive
	}
}

// WithConfig applies the server, permalink and map sections of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		if cfg.Server.Listen != "" {
			WithListenAddress(cfg.Server.Listen)(s)
		}
		WithDebugMode(cfg.Server.Debug, 0)(s)
		WithCORS(cfg.Server.CORS)(s)
		WithSessionTTL(cfg.Server.SessionTTL)(s)
		WithMaxSessions(cfg.Server.MaxSessions)(s)
		WithMapOptions(MapOptions(cfg))(s)
	}
}

// MapOptions are the options of the maps opened by the server.
func MapOptions(cfg *config.Config) polarmap.Options {
	opts := polarmap.DefaultOptions()
	opts.Permalink = cfg.Map.Permalink
	opts.Locate = cfg.Map.Locate
	opts.Center = cfg.Map.Center
	opts.Zoom = cfg.Map.Zoom
	if cfg.Map.DefaultProjection != "" {
		opts.DefaultProjection = cfg.Map.DefaultProjection
	}
	if cfg.Permalink.ChangeDefer > 0 {
		opts.ChangeDefer = cfg.Permalink.ChangeDefer
	}
	if cfg.Permalink.PollInterval > 0 {
		opts.PollInterval = cfg.Permalink.PollInterval
	}
	return opts
}
