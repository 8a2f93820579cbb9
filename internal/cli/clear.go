package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all tracked data",
	Long: `Delete all activities, sessions, insights and resource samples.
Application categories are kept.

With --before only activities recorded before that day are deleted.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

var (
	clearYes    bool
	clearBefore string
)

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Skip the confirmation prompt")
	clearCmd.Flags().StringVar(&clearBefore, "before", "", "Only delete activities before this date (YYYY-MM-DD)")
}

func runClear(cmd *cobra.Command, args []string) error {
	if clearBefore != "" {
		return runClearBefore(cmd)
	}

	out := cmd.OutOrStdout()
	if !clearYes && !confirm(cmd.InOrStdin(), out, "This will delete all tracking data. Are you sure?") {
		fmt.Fprintln(out, "Operation cancelled")
		return nil
	}

	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		if err := app.Repo.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Database cleared successfully")
		return nil
	})
}

func runClearBefore(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		loc, err := app.Config.Location()
		if err != nil {
			return err
		}
		before, err := time.ParseInLocation(time.DateOnly, clearBefore, loc)
		if err != nil {
			return fmt.Errorf("--before must be a date like 2006-01-02: %w", err)
		}

		prompt := fmt.Sprintf("This will delete activities recorded before %s. Are you sure?", clearBefore)
		if !clearYes && !confirm(cmd.InOrStdin(), out, prompt) {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}

		n, err := app.Repo.DeleteActivitiesBefore(ctx, before)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d activities recorded before %s\n", n, clearBefore)
		return nil
	})
}
