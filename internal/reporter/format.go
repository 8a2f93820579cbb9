package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/pkg/utils"
)

func FormatTrendsText(trends []models.ProductivityTrend) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Productivity Trends") + "\n\n")

	if len(trends) == 0 {
		b.WriteString("No activity recorded for this range.\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %8s %8s %10s %10s %8s  %s",
		"Date", "Prod.", "Focus", "Active", "Productive", "Switch", "Top app")) + "\n")
	b.WriteString(dimStyle.Render(strings.Repeat("-", 78)) + "\n")

	for _, t := range trends {
		top := "-"
		if len(t.TopProductiveApps) > 0 {
			top = t.TopProductiveApps[0]
		}
		fmt.Fprintf(&b, "%-10s %s %s %10s %10s %8d  %s\n",
			t.Date,
			scoreStyle(t.ProductivityScore).Render(fmt.Sprintf("%8s", utils.Percent(t.ProductivityScore))),
			scoreStyle(t.FocusScore).Render(fmt.Sprintf("%8s", utils.Percent(t.FocusScore))),
			utils.FormatDuration(t.TotalActiveTime),
			utils.FormatDuration(t.ProductiveTime),
			t.ContextSwitches,
			top)
	}
	return b.String()
}

func FormatInsightsText(report models.InsightReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Insights") + "\n")

	if len(report.Achievements) == 0 && len(report.Warnings) == 0 && len(report.Insights) == 0 {
		b.WriteString("\nNot enough data for insights yet.\n")
		return b.String()
	}

	if len(report.Achievements) > 0 {
		b.WriteString("\n" + headerStyle.Render("Achievements") + "\n")
		for _, a := range report.Achievements {
			fmt.Fprintf(&b, "  %s %s: %s\n", productiveStyle.Render("*"), a.Title, a.Description)
		}
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\n" + headerStyle.Render("Warnings") + "\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "  %s %s\n", severityLabel(w.Severity), w.Message)
			for _, r := range w.Recommendations {
				fmt.Fprintf(&b, "      - %s\n", r)
			}
		}
	}

	// Achievements and warnings are also mirrored into Insights; list only the rest.
	shown := map[string]bool{"achievement": true}
	for _, w := range report.Warnings {
		shown[w.Type] = true
	}
	var observations []models.Insight
	for _, in := range report.Insights {
		if !shown[in.Type] {
			observations = append(observations, in)
		}
	}
	if len(observations) > 0 {
		b.WriteString("\n" + headerStyle.Render("Observations") + "\n")
		for _, in := range observations {
			fmt.Fprintf(&b, "  %s %s: %s\n", severityLabel(in.Priority), in.Title, in.Description)
		}
	}
	return b.String()
}

func severityLabel(s models.Severity) string {
	label := fmt.Sprintf("[%s]", s)
	switch s {
	case models.SeverityHigh, models.SeverityCritical:
		return highStyle.Render(label)
	case models.SeverityMedium:
		return neutralStyle.Render(label)
	default:
		return dimStyle.Render(label)
	}
}

func FormatOptimizationText(s models.OptimizationSettings) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Suggested Schedule") + "\n\n")
	fmt.Fprintf(&b, "Work hours:     %02d:00 - %02d:00\n", s.WorkStartHour, s.WorkEndHour)
	fmt.Fprintf(&b, "Break every:    %d minutes\n", s.BreakIntervalMinutes)
	if len(s.Recommendations) > 0 {
		b.WriteString("\n" + headerStyle.Render("Recommendations") + "\n")
		for _, r := range s.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}
	return b.String()
}

func FormatResourcesText(m models.SystemMetrics, apps []models.ResourceIntensiveApp) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("System Resources") + "\n")
	b.WriteString(dimStyle.Render(time.UnixMilli(m.Timestamp).Format("2006-01-02 15:04:05")) + "\n\n")

	fmt.Fprintf(&b, "CPU:       %5.1f%%\n", m.CPUUsage)
	fmt.Fprintf(&b, "Memory:    %5.1f%%\n", m.MemoryUsage)
	fmt.Fprintf(&b, "Disk:      %5.1f%%\n", m.DiskUsage)
	fmt.Fprintf(&b, "Load:      %5.2f\n", m.LoadAverage)
	fmt.Fprintf(&b, "Network:   %.0f B/s in, %.0f B/s out\n", m.NetworkRxRate, m.NetworkTxRate)

	if len(apps) == 0 {
		return b.String()
	}

	b.WriteString("\n" + headerStyle.Render(fmt.Sprintf("%-30s %8s %8s %10s  %s", "Application", "CPU", "Memory", "Time", "Usage")) + "\n")
	for _, a := range apps {
		usage := string(a.Category)
		if a.Category == models.UsageHeavy || a.Category == models.UsageExtreme {
			usage = highStyle.Render(usage)
		}
		fmt.Fprintf(&b, "%-30s %7.1f%% %7.1f%% %10s  %s\n",
			utils.Truncate(a.AppName, 30),
			a.AverageCPU,
			a.AverageMemory,
			utils.FormatDuration(a.TotalDuration),
			usage)
	}
	return b.String()
}

func FormatCategoriesText(categories []models.AppCategory) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("App Categories") + "\n\n")

	if len(categories) == 0 {
		b.WriteString("No categories defined. Apps are categorised on first sight or with 'category set'.\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-30s %-16s %-12s %s", "Application", "Category", "Rating", "Source")) + "\n")
	for _, c := range categories {
		source := "suggested"
		if c.IsUserDefined {
			source = "user"
		}
		fmt.Fprintf(&b, "%-30s %-16s %s %s\n",
			utils.Truncate(c.AppName, 30),
			utils.Truncate(c.Category, 16),
			ratingStyle(c.ProductivityRating).Render(fmt.Sprintf("%-12s", c.ProductivityRating)),
			dimStyle.Render(source))
	}
	return b.String()
}
