// Package httpserver owns the HTTP surface: health and readiness probes,
// build info, metrics, the ICE configuration endpoint, and the mount
// point for the websocket signaling route.
package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pion/webrtc/v4"

	"github.com/quorumcall/mesh-signaling/internal/config"
	"github.com/quorumcall/mesh-signaling/internal/metrics"
	"github.com/quorumcall/mesh-signaling/internal/turnrest"
)

var ErrServerClosed = http.ErrServerClosed

type BuildInfo struct {
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

type Server struct {
	log   zerolog.Logger
	cfg   config.Config
	build BuildInfo

	ready atomic.Bool

	// turnCreds is nil unless ephemeral TURN credentials are configured.
	turnCreds *turnrest.Generator

	router chi.Router
	srv    *http.Server
}

func New(cfg config.Config, logger zerolog.Logger, build BuildInfo, m *metrics.Metrics) *Server {
	s := &Server{
		log:    logger,
		cfg:    cfg,
		build:  build,
		router: chi.NewRouter(),
	}

	if cfg.TURNRestSecret != "" {
		gen, err := turnrest.New(turnrest.Config{
			SharedSecret:   cfg.TURNRestSecret,
			TTL:            cfg.TURNRestTTL,
			UsernamePrefix: "mesh",
		})
		if err != nil {
			// Config validation already enforces these invariants.
			logger.Error().Err(err).Msg("TURN credential generator disabled")
		} else {
			s.turnCreds = gen
		}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(logger))
	s.router.Use(middleware.Recoverer)

	s.registerRoutes(m)

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		// Other timeouts stay zero: the signaling route holds long-lived
		// upgraded connections.
	}

	return s
}

// Router returns the chi router for registering additional routes. It must
// only be used during startup, before Serve is called.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) Serve(l net.Listener) error {
	s.ready.Store(true)
	s.log.Info().Str("addr", l.Addr().String()).Msg("http server serving")
	return s.srv.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	return s.srv.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.ready.Store(false)
	return s.srv.Close()
}

func (s *Server) registerRoutes(m *metrics.Metrics) {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	s.router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"ready": true})
	})

	s.router.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, s.build)
	})

	s.router.Get("/webrtc/ice", s.handleICEConfig)

	if m != nil {
		s.router.Method(http.MethodGet, "/metrics", metrics.PrometheusHandler(m))
	}
}

// handleICEConfig serves the ICE server list clients should dial through.
// When ephemeral TURN credentials are configured, a freshly minted entry is
// appended per request; credentials are never persisted.
func (s *Server) handleICEConfig(w http.ResponseWriter, r *http.Request) {
	servers := s.cfg.ICEServers
	body := map[string]any{}

	if s.turnCreds != nil {
		creds, err := s.turnCreds.MintAnonymous()
		if err != nil {
			s.log.Error().Err(err).Msg("minting TURN credentials failed")
			WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "ice configuration unavailable"})
			return
		}
		servers = append(append([]webrtc.ICEServer(nil), servers...), webrtc.ICEServer{
			URLs:       s.cfg.TURNRestURLs,
			Username:   creds.Username,
			Credential: creds.Credential,
		})
		body["expiresAt"] = creds.ExpiresAt
	}

	body["iceServers"] = servers
	WriteJSON(w, http.StatusOK, body)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http_request")
		})
	}
}

// WriteJSON writes a JSON response body and sets the Content-Type header.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
