// Package config loads the server configuration from environment
// variables with command-line flag overrides.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

const (
	envVarListenAddr      = "MESH_LISTEN_ADDR"
	envVarLogFormat       = "MESH_LOG_FORMAT"
	envVarLogLevel        = "MESH_LOG_LEVEL"
	envVarShutdownTimeout = "MESH_SHUTDOWN_TIMEOUT"
	envVarAllowedOrigins  = "MESH_ALLOWED_ORIGINS"

	// Room quotas.
	envVarRoomCodeBytes          = "MESH_ROOM_CODE_BYTES"
	envVarMaxRooms               = "MESH_MAX_ROOMS"
	envVarMaxParticipantsPerRoom = "MESH_MAX_PARTICIPANTS_PER_ROOM"

	// WebSocket signaling hardening.
	envVarJoinTimeout          = "MESH_JOIN_TIMEOUT"
	envVarWSIdleTimeout        = "MESH_WS_IDLE_TIMEOUT"
	envVarWSPingInterval       = "MESH_WS_PING_INTERVAL"
	envVarMaxMessageBytes      = "MESH_MAX_SIGNALING_MESSAGE_BYTES"
	envVarMaxMessagesPerSecond = "MESH_MAX_SIGNALING_MESSAGES_PER_SECOND"
	envVarSendQueueSize        = "MESH_SEND_QUEUE_SIZE"

	// Ephemeral TURN credentials (coturn REST API). When the secret is set,
	// MESH_TURN_URLS entries are served with per-request minted credentials
	// instead of the static username/credential pair.
	envVarTurnRestSecret = "MESH_TURN_REST_SECRET"
	envVarTurnRestTTL    = "MESH_TURN_REST_TTL"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const (
	DefaultListenAddr      = "127.0.0.1:8080"
	DefaultShutdownTimeout = 15 * time.Second

	DefaultRoomCodeBytes = 4

	DefaultJoinTimeout          = 10 * time.Second
	DefaultWSIdleTimeout        = 60 * time.Second
	DefaultWSPingInterval       = 30 * time.Second
	DefaultMaxMessageBytes      = 64 * 1024 // enough for any SDP
	DefaultMaxMessagesPerSecond = 50
	DefaultSendQueueSize        = 64

	DefaultTURNRestTTL = time.Hour
)

type Config struct {
	ListenAddr      string
	LogFormat       string
	LogLevel        string
	ShutdownTimeout time.Duration

	// AllowedOrigins is the browser Origin allowlist for the websocket
	// endpoint. Empty means same-host only; a single "*" allows any origin.
	AllowedOrigins []string

	RoomCodeBytes          int
	MaxRooms               int
	MaxParticipantsPerRoom int

	JoinTimeout          time.Duration
	WSIdleTimeout        time.Duration
	WSPingInterval       time.Duration
	MaxMessageBytes      int64
	MaxMessagesPerSecond int
	SendQueueSize        int

	// ICEServers is served to clients over GET /webrtc/ice so they can
	// construct their PeerConnections. The server itself never opens media
	// transports.
	ICEServers []webrtc.ICEServer

	// TURNRestURLs are TURN servers whose credentials are minted per request
	// from TURNRestSecret rather than configured statically.
	TURNRestURLs   []string
	TURNRestSecret string
	TURNRestTTL    time.Duration
}

func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	cfg := Config{
		ListenAddr:      envOrDefault(lookup, envVarListenAddr, DefaultListenAddr),
		LogFormat:       envOrDefault(lookup, envVarLogFormat, LogFormatText),
		LogLevel:        envOrDefault(lookup, envVarLogLevel, zerolog.InfoLevel.String()),
		ShutdownTimeout: DefaultShutdownTimeout,

		RoomCodeBytes: DefaultRoomCodeBytes,

		JoinTimeout:          DefaultJoinTimeout,
		WSIdleTimeout:        DefaultWSIdleTimeout,
		WSPingInterval:       DefaultWSPingInterval,
		MaxMessageBytes:      DefaultMaxMessageBytes,
		MaxMessagesPerSecond: DefaultMaxMessagesPerSecond,
		SendQueueSize:        DefaultSendQueueSize,
	}

	var err error
	if cfg.ShutdownTimeout, err = envDurationOrDefault(lookup, envVarShutdownTimeout, cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.JoinTimeout, err = envDurationOrDefault(lookup, envVarJoinTimeout, cfg.JoinTimeout); err != nil {
		return Config{}, err
	}
	if cfg.WSIdleTimeout, err = envDurationOrDefault(lookup, envVarWSIdleTimeout, cfg.WSIdleTimeout); err != nil {
		return Config{}, err
	}
	if cfg.WSPingInterval, err = envDurationOrDefault(lookup, envVarWSPingInterval, cfg.WSPingInterval); err != nil {
		return Config{}, err
	}
	if cfg.RoomCodeBytes, err = envIntOrDefault(lookup, envVarRoomCodeBytes, cfg.RoomCodeBytes); err != nil {
		return Config{}, err
	}
	if cfg.MaxRooms, err = envIntOrDefault(lookup, envVarMaxRooms, 0); err != nil {
		return Config{}, err
	}
	if cfg.MaxParticipantsPerRoom, err = envIntOrDefault(lookup, envVarMaxParticipantsPerRoom, 0); err != nil {
		return Config{}, err
	}
	if cfg.MaxMessagesPerSecond, err = envIntOrDefault(lookup, envVarMaxMessagesPerSecond, cfg.MaxMessagesPerSecond); err != nil {
		return Config{}, err
	}
	if cfg.SendQueueSize, err = envIntOrDefault(lookup, envVarSendQueueSize, cfg.SendQueueSize); err != nil {
		return Config{}, err
	}
	maxMsgBytes, err := envIntOrDefault(lookup, envVarMaxMessageBytes, int(cfg.MaxMessageBytes))
	if err != nil {
		return Config{}, err
	}
	cfg.MaxMessageBytes = int64(maxMsgBytes)

	cfg.AllowedOrigins = splitCommaSeparated(envOrDefault(lookup, envVarAllowedOrigins, ""))

	cfg.TURNRestSecret = envOrDefault(lookup, envVarTurnRestSecret, "")
	if cfg.TURNRestTTL, err = envDurationOrDefault(lookup, envVarTurnRestTTL, DefaultTURNRestTTL); err != nil {
		return Config{}, err
	}

	turnURLs := envOrDefault(lookup, envTurnURLs, "")
	if cfg.TURNRestSecret != "" {
		// TURN URLs are served with minted credentials, not as static entries.
		cfg.TURNRestURLs = splitCommaSeparated(turnURLs)
		turnURLs = ""
	}

	iceServers, err := parseICEServersFromValues(
		envOrDefault(lookup, envICEServersJSON, ""),
		envOrDefault(lookup, envStunURLs, ""),
		turnURLs,
		envOrDefault(lookup, envTurnUsername, ""),
		envOrDefault(lookup, envTurnCredential, ""),
	)
	if err != nil {
		return Config{}, err
	}
	cfg.ICEServers = iceServers

	fs := flag.NewFlagSet("mesh-signaling", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "TCP listen address")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.IntVar(&cfg.MaxRooms, "max-rooms", cfg.MaxRooms, "Maximum number of live rooms (0 = unlimited)")
	fs.IntVar(&cfg.MaxParticipantsPerRoom, "max-participants-per-room", cfg.MaxParticipantsPerRoom, "Maximum participants per room (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			fs.SetOutput(os.Stderr)
			fs.Usage()
		}
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("unsupported log level %q: %w", c.LogLevel, err)
	}
	if c.WSPingInterval >= c.WSIdleTimeout {
		return fmt.Errorf("%s (%s) must be shorter than %s (%s)",
			envVarWSPingInterval, c.WSPingInterval, envVarWSIdleTimeout, c.WSIdleTimeout)
	}
	if c.RoomCodeBytes <= 0 {
		return fmt.Errorf("%s must be positive", envVarRoomCodeBytes)
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("%s must be positive", envVarMaxMessageBytes)
	}
	if c.MaxMessagesPerSecond <= 0 {
		return fmt.Errorf("%s must be positive", envVarMaxMessagesPerSecond)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("%s must be positive", envVarSendQueueSize)
	}
	if c.TURNRestSecret != "" {
		if len(c.TURNRestURLs) == 0 {
			return fmt.Errorf("%s requires %s", envVarTurnRestSecret, envTurnURLs)
		}
		if c.TURNRestTTL <= 0 {
			return fmt.Errorf("%s must be positive", envVarTurnRestTTL)
		}
		for _, url := range c.TURNRestURLs {
			if !strings.HasPrefix(url, "turn:") && !strings.HasPrefix(url, "turns:") {
				return fmt.Errorf("%s: %q is not a turn/turns URL", envTurnURLs, url)
			}
		}
	}
	return nil
}

// NewLogger builds the process logger from the configured format and level.
func NewLogger(cfg Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("unsupported log level %q: %w", cfg.LogLevel, err)
	}

	var out io.Writer = os.Stdout
	if cfg.LogFormat == LogFormatText {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func splitCommaSeparated(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
