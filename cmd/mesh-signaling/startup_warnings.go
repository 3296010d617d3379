package main

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/quorumcall/mesh-signaling/internal/config"
)

// logStartupSecurityWarnings flags configuration that is acceptable in
// development but risky on a public deployment.
func logStartupSecurityWarnings(logger zerolog.Logger, cfg config.Config) {
	for _, w := range startupSecurityWarnings(cfg) {
		logger.Warn().Msg(w)
	}
}

func startupSecurityWarnings(cfg config.Config) []string {
	var warnings []string

	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			warnings = append(warnings, "MESH_ALLOWED_ORIGINS contains \"*\": any website can open signaling connections; restrict origins before exposing this server publicly")
			break
		}
	}

	host, _, ok := strings.Cut(cfg.ListenAddr, ":")
	if ok && (host == "" || host == "0.0.0.0" || host == "::") {
		warnings = append(warnings, "listening on all interfaces; place this server behind TLS termination or bind to a private address")
	}

	if cfg.MaxRooms <= 0 {
		warnings = append(warnings, "MESH_MAX_ROOMS is unlimited; a client can create rooms until memory is exhausted")
	}

	if len(cfg.ICEServers) == 0 {
		warnings = append(warnings, "no ICE servers configured; peers behind NAT will fail to connect (set MESH_STUN_URLS or MESH_ICE_SERVERS_JSON)")
	}

	return warnings
}
