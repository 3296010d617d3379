package main

import (
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/quorumcall/mesh-signaling/internal/config"
)

func quietConfig() config.Config {
	return config.Config{
		ListenAddr:     "127.0.0.1:8080",
		AllowedOrigins: []string{"https://app.example.com"},
		MaxRooms:       64,
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.example.com:3478"}},
		},
	}
}

func TestNoWarningsForLockedDownConfig(t *testing.T) {
	if warnings := startupSecurityWarnings(quietConfig()); len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}

func TestWarnsOnWildcardOrigins(t *testing.T) {
	cfg := quietConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com", "*"}
	assertWarning(t, cfg, "MESH_ALLOWED_ORIGINS")
}

func TestWarnsOnAllInterfaces(t *testing.T) {
	for _, addr := range []string{":8080", "0.0.0.0:8080"} {
		cfg := quietConfig()
		cfg.ListenAddr = addr
		assertWarning(t, cfg, "all interfaces")
	}
}

func TestWarnsOnUnlimitedRooms(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxRooms = 0
	assertWarning(t, cfg, "MESH_MAX_ROOMS")
}

func TestWarnsOnMissingICEServers(t *testing.T) {
	cfg := quietConfig()
	cfg.ICEServers = nil
	assertWarning(t, cfg, "no ICE servers")
}

func assertWarning(t *testing.T, cfg config.Config, substr string) {
	t.Helper()
	for _, w := range startupSecurityWarnings(cfg) {
		if strings.Contains(w, substr) {
			return
		}
	}
	t.Fatalf("expected a warning containing %q, got %v", substr, startupSecurityWarnings(cfg))
}
