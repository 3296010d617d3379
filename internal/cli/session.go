package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/quorumcall/mesh-signaling/internal/client"
)

// runSession drives one mesh membership until the user interrupts, stdin
// closes or the signaling connection drops.
func runSession(cfg client.Config) error {
	log := newLogger()
	cfg.Logger = log
	cfg.ICEServers = resolveICEServers(context.Background(), log)

	if cfg.Name == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			cfg.Name = host
		} else {
			cfg.Name = "anonymous"
		}
	}

	cfg.OnMessage = func(from client.PeerInfo, data []byte) {
		name := from.Name
		if name == "" {
			name = shortID(from.ID)
		}
		fmt.Printf("[%s] %s\n", name, data)
	}
	cfg.OnPeerConnected = func(p client.PeerInfo) {
		fmt.Printf("* connected to %s\n", describePeer(p))
	}
	cfg.OnPeerLeft = func(id string) {
		fmt.Printf("* %s left\n", shortID(id))
	}

	mesh, err := client.Connect(cfg)
	if err != nil {
		return err
	}
	defer mesh.Leave()

	fmt.Printf("room %s, you are %s\n", mesh.Room(), shortID(mesh.Self()))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			mesh.Broadcast(append([]byte(nil), line...))
		}
	}()

	meshDone := make(chan error, 1)
	go func() { meshDone <- mesh.Wait() }()

	select {
	case <-interrupt:
		fmt.Println("leaving")
		return nil
	case <-stdinDone:
		return nil
	case err := <-meshDone:
		return fmt.Errorf("disconnected: %w", err)
	}
}

func describePeer(p client.PeerInfo) string {
	if p.Name != "" {
		return fmt.Sprintf("%s (%s)", p.Name, shortID(p.ID))
	}
	return shortID(p.ID)
}

// shortID truncates a participant UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
