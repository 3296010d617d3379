package cli

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/quorumcall/mesh-signaling/internal/client"
)

// resolveICEServers builds the ICE server list from flags, falling back to
// the server-advertised configuration when no explicit servers were given.
func resolveICEServers(ctx context.Context, log zerolog.Logger) []webrtc.ICEServer {
	servers := iceServersFromFlags(flagSTUN, flagTURN, flagTURNUser, flagTURNPass)
	if len(servers) > 0 || !flagFetchICE {
		return servers
	}

	fetched, err := client.FetchICEServers(ctx, flagServer)
	if err != nil {
		log.Warn().Err(err).Msg("could not fetch ICE configuration, continuing without")
		return nil
	}
	return fetched
}

func iceServersFromFlags(stun, turn []string, turnUser, turnPass string) []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       turn,
			Username:   turnUser,
			Credential: turnPass,
		})
	}
	return servers
}
