// Package cli implements the meshctl command tree. meshctl is a terminal
// mesh participant: it creates or joins a room, connects a data channel to
// every other participant and relays stdin lines to all of them.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagServer  string
	flagName    string
	flagVerbose bool

	flagSTUN     []string
	flagTURN     []string
	flagTURNUser string
	flagTURNPass string
	flagFetchICE bool
)

var rootCmd = &cobra.Command{
	Use:   "meshctl",
	Short: "Terminal client for mesh-signaling rooms",
	Long: `meshctl connects to a mesh-signaling server, enters a room and opens a
WebRTC data channel to every other participant. Lines typed on stdin are
broadcast to the whole mesh; messages from peers are printed as they
arrive.`,
}

// Execute runs the command tree. Called once from main.
func Execute() {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", "http://127.0.0.1:8080", "Signaling server URL")
	rootCmd.PersistentFlags().StringVarP(&flagName, "name", "n", "", "Display name announced to peers")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.PersistentFlags().StringSliceVar(&flagSTUN, "stun", nil, "STUN server URL (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&flagTURN, "turn", nil, "TURN server URL (repeatable)")
	rootCmd.PersistentFlags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	rootCmd.PersistentFlags().StringVar(&flagTURNPass, "turn-pass", "", "TURN credential")
	rootCmd.PersistentFlags().BoolVar(&flagFetchICE, "fetch-ice", true, "Fetch ICE configuration from the server")
}
