package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/quorumcall/mesh-signaling/internal/config"
	"github.com/quorumcall/mesh-signaling/internal/httpserver"
	"github.com/quorumcall/mesh-signaling/internal/metrics"
	"github.com/quorumcall/mesh-signaling/internal/room"
	"github.com/quorumcall/mesh-signaling/internal/signaling"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger.Info().
		Str("listen_addr", cfg.ListenAddr).
		Int("max_rooms", cfg.MaxRooms).
		Int("max_participants_per_room", cfg.MaxParticipantsPerRoom).
		Int64("max_signaling_message_bytes", cfg.MaxMessageBytes).
		Int("max_signaling_messages_per_second", cfg.MaxMessagesPerSecond).
		Dur("join_timeout", cfg.JoinTimeout).
		Int("ice_servers", len(cfg.ICEServers)).
		Msg("starting mesh-signaling")

	logStartupSecurityWarnings(logger, cfg)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error().Err(err).Msg("failed to listen")
		os.Exit(1)
	}

	m := metrics.New()
	rooms := room.NewManager(room.Config{
		RoomCodeBytes:          cfg.RoomCodeBytes,
		MaxRooms:               cfg.MaxRooms,
		MaxParticipantsPerRoom: cfg.MaxParticipantsPerRoom,
	}, m, logger)

	commit, built := resolveBuildInfo(buildCommit, buildTime)
	srv := httpserver.New(cfg, logger, httpserver.BuildInfo{Commit: commit, BuildTime: built}, m)

	sig := signaling.NewServer(signaling.Config{
		Rooms:                rooms,
		Metrics:              m,
		Logger:               logger,
		AllowedOrigins:       cfg.AllowedOrigins,
		JoinTimeout:          cfg.JoinTimeout,
		WSIdleTimeout:        cfg.WSIdleTimeout,
		WSPingInterval:       cfg.WSPingInterval,
		MaxMessageBytes:      cfg.MaxMessageBytes,
		MaxMessagesPerSecond: cfg.MaxMessagesPerSecond,
		SendQueueSize:        cfg.SendQueueSize,
	})
	sig.RegisterRoutes(srv.Router())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, httpserver.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			os.Exit(1)
		}
	case s := <-quit:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("forced shutdown")
			_ = srv.Close()
		}
	}

	logger.Info().Msg("server exited")
}

// resolveBuildInfo falls back to Go's embedded VCS metadata when ldflags
// were not provided.
func resolveBuildInfo(commit, built string) (string, string) {
	if commit != "" && built != "" {
		return commit, built
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, built
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "" {
				commit = setting.Value
			}
		case "vcs.time":
			if built == "" {
				built = setting.Value
			}
		}
	}
	return commit, built
}
