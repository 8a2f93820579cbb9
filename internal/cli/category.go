package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/productivity"
	"github.com/actionsum/focuslens/internal/reporter"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage application categories and ratings",
	Long: `Application categories decide whether time spent in an app counts as
productive, neutral or distracting.

Examples:
  focuslens category list
  focuslens category set code development productive
  focuslens category suggest Slack`,
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known application categories",
	Args:  cobra.NoArgs,
	RunE:  runCategoryList,
}

var categorySetCmd = &cobra.Command{
	Use:   "set <app> <category> <productive|neutral|distracting>",
	Short: "Assign a category and rating to an application",
	Args:  cobra.ExactArgs(3),
	RunE:  runCategorySet,
}

var categorySuggestCmd = &cobra.Command{
	Use:   "suggest <app>",
	Short: "Show the built-in category guess for an application",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategorySuggest,
}

func init() {
	rootCmd.AddCommand(categoryCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categorySetCmd)
	categoryCmd.AddCommand(categorySuggestCmd)

	categoryListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
}

func parseRating(s string) (models.Rating, error) {
	switch r := models.Rating(strings.ToLower(s)); r {
	case models.RatingProductive, models.RatingNeutral, models.RatingDistracting:
		return r, nil
	default:
		return "", fmt.Errorf("invalid rating %q (valid: productive, neutral, distracting)", s)
	}
}

func runCategoryList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		categories, err := app.Repo.GetAppCategories(ctx)
		if err != nil {
			return err
		}
		sort.Slice(categories, func(i, j int) bool {
			return strings.ToLower(categories[i].AppName) < strings.ToLower(categories[j].AppName)
		})
		return render(cmd.OutOrStdout(), jsonOutput, categories, func() string {
			return reporter.FormatCategoriesText(categories)
		})
	})
}

func runCategorySet(cmd *cobra.Command, args []string) error {
	app, category := args[0], args[1]
	rating, err := parseRating(args[2])
	if err != nil {
		return err
	}
	if strings.TrimSpace(app) == "" || strings.TrimSpace(category) == "" {
		return fmt.Errorf("app and category cannot be empty")
	}

	return withApp(cmd, func(ctx context.Context, a *AppContext) error {
		if err := a.Engine.Categories().Set(ctx, app, category, rating); err != nil {
			return fmt.Errorf("failed to save category: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", app, category, rating)
		return nil
	})
}

func runCategorySuggest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	s, ok := productivity.SuggestCategory(args[0])
	if !ok {
		fmt.Fprintf(out, "No suggestion for %s; it will score as neutral until categorised.\n", args[0])
		return nil
	}
	fmt.Fprintf(out, "%s: %s (%s)\n", args[0], s.Category, s.Rating)
	return nil
}
