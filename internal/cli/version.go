package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/actionsum/focuslens/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "focuslens version %s\n  built: %s\n", version.Version, version.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
