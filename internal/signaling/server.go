package signaling

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quorumcall/mesh-signaling/internal/metrics"
	"github.com/quorumcall/mesh-signaling/internal/origin"
	"github.com/quorumcall/mesh-signaling/internal/ratelimit"
	"github.com/quorumcall/mesh-signaling/internal/room"
)

// Config wires together the runtime dependencies for the signaling surface.
type Config struct {
	// Rooms is the coordinator backing this surface. Required.
	Rooms *room.Manager

	Metrics *metrics.Metrics
	Logger  zerolog.Logger

	// AllowedOrigins is the browser Origin allowlist. Empty allows only
	// same-host origins; "*" allows any.
	AllowedOrigins []string

	// JoinTimeout bounds how long a connection may idle before its first
	// create/join message.
	JoinTimeout time.Duration

	WSIdleTimeout  time.Duration
	WSPingInterval time.Duration

	MaxMessageBytes      int64
	MaxMessagesPerSecond int
	SendQueueSize        int

	// Clock drives the per-connection rate limiter; nil means wall clock.
	Clock ratelimit.Clock
}

// WithDefaults fills unset limits with production defaults.
func (c Config) WithDefaults() Config {
	if c.Metrics == nil {
		c.Metrics = metrics.New()
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = 10 * time.Second
	}
	if c.WSIdleTimeout <= 0 {
		c.WSIdleTimeout = 60 * time.Second
	}
	if c.WSPingInterval <= 0 || c.WSPingInterval >= c.WSIdleTimeout {
		c.WSPingInterval = c.WSIdleTimeout / 2
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 * 1024
	}
	if c.MaxMessagesPerSecond <= 0 {
		c.MaxMessagesPerSecond = 50
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 64
	}
	if c.Clock == nil {
		c.Clock = ratelimit.RealClock{}
	}
	return c
}

// Server implements the WebSocket signaling endpoint.
type Server struct {
	cfg      Config
	rooms    *room.Manager
	metrics  *metrics.Metrics
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewServer(cfg Config) *Server {
	cfg = cfg.WithDefaults()
	s := &Server{
		cfg:     cfg,
		rooms:   cfg.Rooms,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}
	checker := origin.NewChecker(cfg.AllowedOrigins)
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return checker.Allow(r.Header.Get("Origin"), r.Host)
		},
	}
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/ws", s.handleWebSocket)
}
