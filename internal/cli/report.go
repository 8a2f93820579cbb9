package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/reporter"
)

var reportCmd = &cobra.Command{
	Use:   "report [day|week|month]",
	Short: "Show a productivity report for a period",
	Long: `Show time per application with productivity and focus scores.

Examples:
  focuslens report             # Today
  focuslens report week        # This week, starting Monday
  focuslens report month --json`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"day", "today", "week", "month"},
	RunE:      runReport,
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show daily productivity trends",
	Args:  cobra.NoArgs,
	RunE:  runTrends,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate achievements, warnings and observations",
	Long: `Analyse recent activity and print insights. Generated insights are stored
and can be listed later through the API.`,
	Args: cobra.NoArgs,
	RunE: runInsights,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Suggest work hours and break intervals from the last 30 days",
	Args:  cobra.NoArgs,
	RunE:  runOptimize,
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Show system load and resource intensive applications",
	Args:  cobra.NoArgs,
	RunE:  runResources,
}

// Flags
var (
	jsonOutput   bool
	trendDays    int
	insightDays  int
	resourceDays int
)

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(resourcesCmd)

	for _, cmd := range []*cobra.Command{reportCmd, trendsCmd, insightsCmd, optimizeCmd, resourcesCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	}
	trendsCmd.Flags().IntVarP(&trendDays, "days", "d", 7, "Number of days to include")
	insightsCmd.Flags().IntVarP(&insightDays, "days", "d", 7, "Number of days to analyse")
	resourcesCmd.Flags().IntVarP(&resourceDays, "days", "d", 1, "Days of activity to scan for heavy apps")
}

func runReport(cmd *cobra.Command, args []string) error {
	period := "day"
	if len(args) > 0 {
		period = args[0]
	}

	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		report, err := reporter.New(app.Config, app.Repo, app.Engine).GenerateReport(ctx, period)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), jsonOutput, report, func() string {
			return reporter.FormatReportText(report)
		})
	})
}

func runTrends(cmd *cobra.Command, args []string) error {
	if err := validateDays(trendDays); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		trends, err := app.Engine.GetProductivityTrends(ctx, trendDays)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), jsonOutput, trends, func() string {
			return reporter.FormatTrendsText(trends)
		})
	})
}

func runInsights(cmd *cobra.Command, args []string) error {
	if err := validateDays(insightDays); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		report, err := app.Engine.GenerateInsights(ctx, insightDays)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), jsonOutput, report, func() string {
			return reporter.FormatInsightsText(report)
		})
	})
}

func runOptimize(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		settings, err := app.Engine.OptimizeProductivitySettings(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), jsonOutput, settings, func() string {
			return reporter.FormatOptimizationText(settings)
		})
	})
}

func runResources(cmd *cobra.Command, args []string) error {
	if err := validateDays(resourceDays); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		loc, err := app.Config.Location()
		if err != nil {
			return err
		}
		activities, err := app.Repo.GetActivities(ctx, lastDays(time.Now(), loc, resourceDays))
		if err != nil {
			return err
		}

		active := make([]models.ActivityRecord, 0, len(activities))
		for _, a := range activities {
			if !a.IsIdle {
				active = append(active, a)
			}
		}

		report := app.Engine.Resources(ctx, active)
		return render(cmd.OutOrStdout(), jsonOutput, report, func() string {
			return reporter.FormatResourcesText(report.System, report.IntensiveApps)
		})
	})
}
