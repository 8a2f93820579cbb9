// Package reporter builds per-period productivity reports and renders analytics as text or JSON.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/actionsum/focuslens/internal/config"
	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/ports"
	"github.com/actionsum/focuslens/pkg/utils"
)

// Analyzer summarises a list of activities.
type Analyzer interface {
	AnalyzeProductivityPatterns(ctx context.Context, activities []models.ActivityRecord) models.ProductivityMetrics
}

// Reporter handles report generation
type Reporter struct {
	config   *config.Config
	store    ports.ActivityStore
	analyzer Analyzer
	loc      *time.Location
	now      func() time.Time
}

// New creates a new reporter. An unknown report time zone falls back to time.Local.
func New(cfg *config.Config, store ports.ActivityStore, analyzer Analyzer) *Reporter {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}
	return &Reporter{
		config:   cfg,
		store:    store,
		analyzer: analyzer,
		loc:      loc,
		now:      time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(ctx context.Context, periodType string) (*models.Report, error) {
	period, err := GetPeriod(periodType, r.now().In(r.loc))
	if err != nil {
		return nil, err
	}

	activities, err := r.store.GetActivities(ctx, ports.ActivityFilter{Start: period.Start, End: period.End})
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}

	if r.config.Report.ExcludeIdle {
		active := activities[:0:0]
		for _, a := range activities {
			if !a.IsIdle {
				active = append(active, a)
			}
		}
		activities = active
	}

	apps, total := summarize(activities)

	return &models.Report{
		Period:        *period,
		Metrics:       r.analyzer.AnalyzeProductivityPatterns(ctx, activities),
		Apps:          apps,
		TotalDuration: total,
		GeneratedAt:   r.now(),
	}, nil
}

// summarize totals time per app, largest first. Category and rating come from the
// most recent record of each app.
func summarize(activities []models.ActivityRecord) ([]models.AppSummary, int64) {
	byApp := make(map[string]*models.AppSummary)
	var total int64
	for _, a := range activities {
		s, ok := byApp[a.AppName]
		if !ok {
			s = &models.AppSummary{AppName: a.AppName}
			byApp[a.AppName] = s
		}
		s.Duration += a.Duration
		if a.Category != "" {
			s.Category = a.Category
		}
		if a.ProductivityRating != "" {
			s.Rating = a.ProductivityRating
		}
		total += a.Duration
	}

	apps := make([]models.AppSummary, 0, len(byApp))
	for _, s := range byApp {
		if total > 0 {
			s.Percentage = float64(s.Duration) / float64(total) * 100
		}
		apps = append(apps, *s)
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Duration != apps[j].Duration {
			return apps[i].Duration > apps[j].Duration
		}
		return apps[i].AppName < apps[j].AppName
	})
	return apps, total
}

// GetPeriod calculates the time range for the report
func GetPeriod(periodType string, now time.Time) (*models.ReportPeriod, error) {
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Weeks start on Monday.
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func FormatReportText(report *models.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Productivity Report - "+report.Period.Type) + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Period: %s to %s",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))) + "\n\n")

	if len(report.Apps) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	m := report.Metrics
	fmt.Fprintf(&b, "Total Time:    %s\n", utils.FormatDuration(report.TotalDuration))
	fmt.Fprintf(&b, "Productivity:  %s\n", scoreStyle(m.ProductivityScore).Render(utils.Percent(m.ProductivityScore)))
	fmt.Fprintf(&b, "Focus:         %s\n", scoreStyle(m.FocusScore).Render(utils.Percent(m.FocusScore)))
	fmt.Fprintf(&b, "Switches:      %d\n", m.ContextSwitches)
	fmt.Fprintf(&b, "Peak Hour:     %02d:00\n", m.PeakProductivityHour)
	fmt.Fprintf(&b, "Split:         %s productive, %s neutral, %s distracting\n\n",
		productiveStyle.Render(utils.FormatDuration(m.ProductiveTime)),
		neutralStyle.Render(utils.FormatDuration(m.NeutralTime)),
		distractingStyle.Render(utils.FormatDuration(m.DistractingTime)))

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-30s %-14s %-12s %10s %8s", "Application", "Category", "Rating", "Time", "Percent")) + "\n")
	b.WriteString(dimStyle.Render(strings.Repeat("-", 78)) + "\n")

	for _, app := range report.Apps {
		fmt.Fprintf(&b, "%-30s %-14s %s %10s %7.1f%%\n",
			utils.Truncate(app.AppName, 30),
			utils.Truncate(app.Category, 14),
			ratingStyle(app.Rating).Render(fmt.Sprintf("%-12s", app.Rating)),
			utils.FormatDuration(app.Duration),
			app.Percentage)
	}

	return b.String()
}

// FormatJSON renders any report value as indented JSON.
func FormatJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}
