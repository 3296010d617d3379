package cli

import (
	"github.com/spf13/cobra"

	"github.com/quorumcall/mesh-signaling/internal/client"
)

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a new room and wait for peers",
	Long: `Create a new room on the signaling server and join it as host. The
room code is printed so others can join with "meshctl join <code>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(client.Config{
			ServerURL: flagServer,
			Create:    true,
			Name:      flagName,
			Role:      "host",
		})
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
