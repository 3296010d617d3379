package cli

import (
	"github.com/spf13/cobra"

	"github.com/quorumcall/mesh-signaling/internal/client"
)

var joinCmd = &cobra.Command{
	Use:     "join <room-code>",
	Aliases: []string{"j"},
	Short:   "Join an existing room",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(client.Config{
			ServerURL: flagServer,
			RoomCode:  args[0],
			Name:      flagName,
			Role:      "guest",
		})
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
}
