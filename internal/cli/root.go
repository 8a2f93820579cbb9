// Package cli implements the focuslens command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "focuslens",
	Short: "Productivity and focus analytics for your desktop",
	Long: `focuslens records which application has focus, scores the time as productive,
neutral or distracting, and turns it into focus, session, trend and insight reports.

Run 'focuslens start' to begin tracking in the background, or 'focuslens serve'
to also expose the JSON API.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
