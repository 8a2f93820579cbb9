// Package insights turns trends and activities into achievements, warnings
// and prioritised insights.
package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/actionsum/focuslens/internal/focus"
	"github.com/actionsum/focuslens/internal/models"
)

type tier struct {
	level     models.AchievementLevel
	threshold float64
}

// Highest tier first.
var (
	productivityTiers = []tier{{models.LevelOutstanding, 0.95}, {models.LevelExcellent, 0.85}, {models.LevelGood, 0.70}}
	focusTiers        = []tier{{models.LevelOutstanding, 0.90}, {models.LevelExcellent, 0.80}, {models.LevelGood, 0.60}}
	consistencyTiers  = []tier{{models.LevelOutstanding, 30}, {models.LevelExcellent, 14}, {models.LevelGood, 7}}
)

const (
	consistencyMinScore = 0.6
	marathonDuration    = 2 * 60 * 60 * 1000

	declineRecentDays   = 3
	declineBaselineDays = 7
	declineThreshold    = 0.15

	maxSwitchesPerHour   = 100.0
	distractedFocusScore = 0.3

	burnoutDailyHours = 10
	burnoutStreak     = 5

	poorFocusScore  = 0.4
	poorFocusDays   = 5
	poorFocusWindow = 7
)

var priorityRank = map[models.Severity]int{
	models.SeverityCritical: 0,
	models.SeverityHigh:     1,
	models.SeverityMedium:   2,
	models.SeverityLow:      3,
}

// Generator is a pure function of its inputs apart from ID generation.
type Generator struct {
	focus *focus.Detector
	newID func() string
}

func NewGenerator(detector *focus.Detector) *Generator {
	if detector == nil {
		detector = focus.NewDetector(nil)
	}
	return &Generator{
		focus: detector,
		newID: func() string { return uuid.New().String() },
	}
}

// Generate runs one detection pass. trends must be ordered oldest first.
func (g *Generator) Generate(activities []models.ActivityRecord, trends []models.ProductivityTrend, now time.Time) models.InsightReport {
	report := models.InsightReport{
		Achievements: g.achievements(activities, trends, now),
		Warnings:     g.warnings(activities, trends, now),
		Insights:     []models.Insight{},
	}

	for _, a := range report.Achievements {
		report.Insights = append(report.Insights, models.Insight{
			ID:          g.newID(),
			Type:        "achievement",
			Title:       a.Title,
			Description: a.Description,
			Priority:    models.SeverityLow,
			Timestamp:   a.AchievedAt,
		})
	}
	for _, w := range report.Warnings {
		report.Insights = append(report.Insights, models.Insight{
			ID:              g.newID(),
			Type:            w.Type,
			Title:           warningTitle(w.Type),
			Description:     w.Message,
			Priority:        w.Severity,
			Actionable:      true,
			Recommendations: w.Recommendations,
			Timestamp:       w.DetectedAt,
		})
	}
	if in, ok := g.peakHourInsight(trends, now); ok {
		report.Insights = append(report.Insights, in)
	}
	if in, ok := g.distractionInsight(activities, now); ok {
		report.Insights = append(report.Insights, in)
	}

	SortInsights(report.Insights)
	return report
}

// SortInsights orders by priority (critical first), then most recent first.
func SortInsights(insights []models.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		ri, rj := priorityRank[insights[i].Priority], priorityRank[insights[j].Priority]
		if ri != rj {
			return ri < rj
		}
		return insights[i].Timestamp.After(insights[j].Timestamp)
	})
}

func (g *Generator) achievements(activities []models.ActivityRecord, trends []models.ProductivityTrend, now time.Time) []models.Achievement {
	achievements := []models.Achievement{}

	if len(trends) > 0 {
		avgProductivity := average(trends, func(t models.ProductivityTrend) float64 { return t.ProductivityScore })
		if t, ok := reach(productivityTiers, avgProductivity); ok {
			achievements = append(achievements, models.Achievement{
				Type:        "productivity",
				Level:       t.level,
				Title:       fmt.Sprintf("%s productivity", levelTitle(t.level)),
				Description: fmt.Sprintf("Average productivity score of %.0f%% over %d days", avgProductivity*100, len(trends)),
				Threshold:   t.threshold,
				Value:       avgProductivity,
				AchievedAt:  now,
			})
		}

		avgFocus := average(trends, func(t models.ProductivityTrend) float64 { return t.FocusScore })
		if t, ok := reach(focusTiers, avgFocus); ok {
			achievements = append(achievements, models.Achievement{
				Type:        "focus",
				Level:       t.level,
				Title:       fmt.Sprintf("%s focus", levelTitle(t.level)),
				Description: fmt.Sprintf("Average focus score of %.0f%% over %d days", avgFocus*100, len(trends)),
				Threshold:   t.threshold,
				Value:       avgFocus,
				AchievedAt:  now,
			})
		}

		streak := float64(consistencyStreak(trends))
		if t, ok := reach(consistencyTiers, streak); ok {
			achievements = append(achievements, models.Achievement{
				Type:        "consistency",
				Level:       t.level,
				Title:       fmt.Sprintf("%.0f-day streak", streak),
				Description: fmt.Sprintf("%.0f consecutive days with productivity of at least %.0f%%", streak, consistencyMinScore*100),
				Threshold:   t.threshold,
				Value:       streak,
				AchievedAt:  now,
			})
		}
	}

	var longest int64
	for _, s := range g.focus.IdentifyFocusSessions(activities) {
		longest = max(longest, s.Duration)
	}
	if longest >= marathonDuration {
		hours := float64(longest) / float64(time.Hour/time.Millisecond)
		achievements = append(achievements, models.Achievement{
			Type:        "focus_marathon",
			Level:       models.LevelExcellent,
			Title:       "Focus marathon",
			Description: fmt.Sprintf("Stayed on one task for %.1f hours", hours),
			Threshold:   float64(marathonDuration),
			Value:       float64(longest),
			AchievedAt:  now,
		})
	}

	return achievements
}

func (g *Generator) warnings(activities []models.ActivityRecord, trends []models.ProductivityTrend, now time.Time) []models.ProductivityWarning {
	warnings := []models.ProductivityWarning{}

	if w, ok := declineWarning(trends, now); ok {
		warnings = append(warnings, w)
	}
	if w, ok := g.distractionWarning(activities, now); ok {
		warnings = append(warnings, w)
	}
	if w, ok := burnoutWarning(trends, now); ok {
		warnings = append(warnings, w)
	}
	if w, ok := poorFocusWarning(trends, now); ok {
		warnings = append(warnings, w)
	}

	return warnings
}

func declineWarning(trends []models.ProductivityTrend, now time.Time) (models.ProductivityWarning, bool) {
	if len(trends) <= declineRecentDays {
		return models.ProductivityWarning{}, false
	}

	split := len(trends) - declineRecentDays
	recent := trends[split:]
	baseline := trends[max(0, split-declineBaselineDays):split]

	score := func(t models.ProductivityTrend) float64 { return t.ProductivityScore }
	before, after := average(baseline, score), average(recent, score)
	if before <= 0 {
		return models.ProductivityWarning{}, false
	}

	decline := (before - after) / before
	if decline < declineThreshold {
		return models.ProductivityWarning{}, false
	}

	severity := models.SeverityMedium
	if decline >= 2*declineThreshold {
		severity = models.SeverityHigh
	}
	return models.ProductivityWarning{
		Type:      "productivity_decline",
		Severity:  severity,
		Message:   fmt.Sprintf("Productivity dropped %.0f%% over the last %d days", decline*100, declineRecentDays),
		Threshold: declineThreshold,
		Value:     decline,
		Recommendations: []string{
			"Review what changed in your schedule this week",
			"Protect your peak hours for focused work",
		},
		DetectedAt: now,
	}, true
}

func (g *Generator) distractionWarning(activities []models.ActivityRecord, now time.Time) (models.ProductivityWarning, bool) {
	if len(activities) == 0 {
		return models.ProductivityWarning{}, false
	}

	switches := len(g.focus.DetectContextSwitches(activities))
	spanHours := float64(activities[len(activities)-1].End()-activities[0].Timestamp) / float64(time.Hour/time.Millisecond)
	perHour := 0.0
	if spanHours > 0 {
		perHour = float64(switches) / spanHours
	}
	focusScore := g.focus.CalculateFocusScore(activities)

	if perHour <= maxSwitchesPerHour && focusScore >= distractedFocusScore {
		return models.ProductivityWarning{}, false
	}

	w := models.ProductivityWarning{
		Type:     "excessive_distraction",
		Severity: models.SeverityHigh,
		Recommendations: []string{
			"Close chat and social apps during focus blocks",
			"Batch notifications and check them at fixed times",
		},
		DetectedAt: now,
	}
	if perHour > maxSwitchesPerHour {
		w.Message = fmt.Sprintf("%.0f context switches per hour", perHour)
		w.Threshold = maxSwitchesPerHour
		w.Value = perHour
	} else {
		w.Message = fmt.Sprintf("Focus score is only %.0f%%", focusScore*100)
		w.Threshold = distractedFocusScore
		w.Value = focusScore
	}
	return w, true
}

func burnoutWarning(trends []models.ProductivityTrend, now time.Time) (models.ProductivityWarning, bool) {
	limit := int64(burnoutDailyHours * time.Hour / time.Millisecond)

	longest, run := 0, 0
	var prev time.Time
	for _, t := range trends {
		day, err := time.Parse(time.DateOnly, t.Date)
		if err != nil || t.TotalActiveTime <= limit {
			run = 0
			continue
		}
		if run > 0 && day.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		prev = day
		longest = max(longest, run)
	}

	if longest < burnoutStreak {
		return models.ProductivityWarning{}, false
	}
	return models.ProductivityWarning{
		Type:      "burnout_risk",
		Severity:  models.SeverityCritical,
		Message:   fmt.Sprintf("More than %d active hours on %d consecutive days", burnoutDailyHours, longest),
		Threshold: burnoutStreak,
		Value:     float64(longest),
		Recommendations: []string{
			"Set a hard stop time for your working day",
			"Take at least one full day off this week",
		},
		DetectedAt: now,
	}, true
}

func poorFocusWarning(trends []models.ProductivityTrend, now time.Time) (models.ProductivityWarning, bool) {
	window := trends[max(0, len(trends)-poorFocusWindow):]
	poor := 0
	for _, t := range window {
		if t.FocusScore < poorFocusScore {
			poor++
		}
	}
	if poor < poorFocusDays {
		return models.ProductivityWarning{}, false
	}
	return models.ProductivityWarning{
		Type:      "poor_focus",
		Severity:  models.SeverityMedium,
		Message:   fmt.Sprintf("Focus was below %.0f%% on %d of the last %d days", poorFocusScore*100, poor, len(window)),
		Threshold: poorFocusDays,
		Value:     float64(poor),
		Recommendations: []string{
			"Work in 25-50 minute single-task blocks",
			"Keep only the app you need on screen",
		},
		DetectedAt: now,
	}, true
}

func (g *Generator) peakHourInsight(trends []models.ProductivityTrend, now time.Time) (models.Insight, bool) {
	var freq [24]int
	best := -1
	for _, t := range trends {
		for _, h := range t.PeakHours {
			freq[h]++
		}
	}
	for h := 0; h < 24; h++ {
		if freq[h] > 0 && (best < 0 || freq[h] > freq[best]) {
			best = h
		}
	}
	if best < 0 {
		return models.Insight{}, false
	}
	return models.Insight{
		ID:              g.newID(),
		Type:            "peak_hours",
		Title:           fmt.Sprintf("You are most active around %02d:00", best),
		Description:     fmt.Sprintf("%02d:00 was a peak hour on %d of %d days", best, freq[best], len(trends)),
		Priority:        models.SeverityLow,
		Actionable:      true,
		Recommendations: []string{fmt.Sprintf("Schedule demanding work between %02d:00 and %02d:00", best, (best+2)%24)},
		Timestamp:       now,
	}, true
}

func (g *Generator) distractionInsight(activities []models.ActivityRecord, now time.Time) (models.Insight, bool) {
	byApp := make(map[string]int64)
	for _, a := range activities {
		if a.ProductivityRating == models.RatingDistracting {
			byApp[a.AppName] += a.Duration
		}
	}

	top := ""
	for app, d := range byApp {
		if top == "" || d > byApp[top] || (d == byApp[top] && app < top) {
			top = app
		}
	}
	if top == "" {
		return models.Insight{}, false
	}

	minutes := byApp[top] / 60000
	return models.Insight{
		ID:              g.newID(),
		Type:            "top_distraction",
		Title:           fmt.Sprintf("%s is your biggest distraction", top),
		Description:     fmt.Sprintf("%d minutes spent in %s", minutes, top),
		Priority:        models.SeverityMedium,
		Actionable:      true,
		Recommendations: []string{fmt.Sprintf("Limit %s to scheduled breaks", top)},
		Timestamp:       now,
	}, true
}

// consistencyStreak counts consecutive calendar days, ending at the most recent trend,
// whose productivity reached consistencyMinScore.
func consistencyStreak(trends []models.ProductivityTrend) int {
	streak := 0
	var next time.Time
	for i := len(trends) - 1; i >= 0; i-- {
		t := trends[i]
		day, err := time.Parse(time.DateOnly, t.Date)
		if err != nil || t.ProductivityScore < consistencyMinScore {
			break
		}
		if streak > 0 && next.Sub(day) != 24*time.Hour {
			break
		}
		streak++
		next = day
	}
	return streak
}

func reach(tiers []tier, value float64) (tier, bool) {
	for _, t := range tiers {
		if value >= t.threshold {
			return t, true
		}
	}
	return tier{}, false
}

func average(trends []models.ProductivityTrend, field func(models.ProductivityTrend) float64) float64 {
	if len(trends) == 0 {
		return 0
	}
	var sum float64
	for _, t := range trends {
		sum += field(t)
	}
	return sum / float64(len(trends))
}

func levelTitle(level models.AchievementLevel) string {
	switch level {
	case models.LevelOutstanding:
		return "Outstanding"
	case models.LevelExcellent:
		return "Excellent"
	default:
		return "Good"
	}
}

func warningTitle(kind string) string {
	switch kind {
	case "productivity_decline":
		return "Productivity is declining"
	case "excessive_distraction":
		return "Excessive distraction"
	case "burnout_risk":
		return "Burnout risk"
	case "poor_focus":
		return "Poor focus"
	default:
		return kind
	}
}
