// Package trends aggregates activities into per-day trends and live scores.
package trends

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/actionsum/focuslens/internal/focus"
	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/monitor"
	"github.com/actionsum/focuslens/internal/ports"
	"github.com/actionsum/focuslens/internal/productivity"
)

const (
	// DefaultTTL is how long a computed trend window is reused.
	DefaultTTL = time.Hour

	neutralScore   = 0.5
	contextWindow  = 30 * time.Minute
	topAppsLimit   = 5
	peakHoursLimit = 3

	optimizeDays         = 30
	defaultStartHour     = 9
	defaultEndHour       = 17
	latestEndHour        = 18
	breakIntervalMinutes = 90
	longDay              = 10 * time.Hour
)

type cacheEntry struct {
	trends []models.ProductivityTrend
	at     time.Time
}

// Analyzer computes real-time scores and day trends. Trend windows are cached per
// day count for the configured TTL.
type Analyzer struct {
	store   ports.ActivityStore
	scorer  *productivity.Scorer
	focus   *focus.Detector
	monitor *monitor.ResourceMonitor
	logger  *slog.Logger
	loc     *time.Location
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[int]cacheEntry
}

type Option func(*Analyzer)

func WithTTL(ttl time.Duration) Option {
	return func(a *Analyzer) { a.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(a *Analyzer) { a.loc = loc }
}

// WithMonitor enables the resource performance multiplier in CalculateRealTimeScore.
func WithMonitor(m *monitor.ResourceMonitor) Option {
	return func(a *Analyzer) { a.monitor = m }
}

func NewAnalyzer(store ports.ActivityStore, scorer *productivity.Scorer, detector *focus.Detector, logger *slog.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{
		store:  store,
		scorer: scorer,
		focus:  detector,
		logger: logger,
		loc:    time.Local,
		ttl:    DefaultTTL,
		now:    time.Now,
		cache:  make(map[int]cacheEntry),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.focus == nil {
		a.focus = focus.NewDetector(a.loc)
	}
	return a
}

// CalculateRealTimeScore scores an activity in context. Any failure yields 0.5.
func (a *Analyzer) CalculateRealTimeScore(ctx context.Context, activity models.ActivityRecord) float64 {
	base := a.scorer.Score(ctx, activity)

	performance := 1.0
	if a.monitor != nil {
		metrics := a.monitor.GetSystemMetrics(ctx)
		performance = monitor.CorrelateResourcesWithProductivity(activity, metrics).PerformanceScore
	}

	at := activity.Time()
	recent, err := a.store.GetActivities(ctx, ports.ActivityFilter{
		Start: at.Add(-contextWindow),
		End:   at.Add(time.Millisecond),
	})
	if err != nil {
		a.logger.Warn("real-time score falling back to neutral", slog.Any("error", err))
		return neutralScore
	}

	score := base * performance * timeOfDayMultiplier(at.In(a.loc).Hour()) * a.contextMultiplier(recent)
	return productivity.Clamp(score)
}

func timeOfDayMultiplier(hour int) float64 {
	switch {
	case (hour >= 9 && hour < 11) || (hour >= 14 && hour < 16):
		return 1.1
	case hour >= 6 && hour < 18:
		return 1.0
	case hour >= 18 && hour < 22:
		return 0.9
	default:
		return 0.7
	}
}

func (a *Analyzer) contextMultiplier(recent []models.ActivityRecord) float64 {
	switches := len(a.focus.DetectContextSwitches(recent))
	switch {
	case switches > 10:
		return 0.8
	case switches > 5:
		return 0.9
	case a.focus.CalculateFocusScore(recent) > 0.8:
		return 1.1
	default:
		return 1.0
	}
}

// GetProductivityTrends returns one trend per calendar day in the last days days that had
// any non-idle activity, oldest first.
func (a *Analyzer) GetProductivityTrends(ctx context.Context, days int) ([]models.ProductivityTrend, error) {
	if days < 1 {
		days = 1
	}
	now := a.now()

	a.mu.Lock()
	if entry, ok := a.cache[days]; ok && now.Sub(entry.at) < a.ttl {
		a.mu.Unlock()
		return entry.trends, nil
	}
	a.mu.Unlock()

	today := midnight(now.In(a.loc))
	activities, err := a.store.GetActivities(ctx, ports.ActivityFilter{
		Start: today.AddDate(0, 0, -(days - 1)),
		End:   today.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load activities for trends: %w", err)
	}

	trends := a.buildTrends(ctx, activities)

	a.mu.Lock()
	a.cache[days] = cacheEntry{trends: trends, at: now}
	a.mu.Unlock()

	return trends, nil
}

// Invalidate drops every cached trend window.
func (a *Analyzer) Invalidate() {
	a.mu.Lock()
	a.cache = make(map[int]cacheEntry)
	a.mu.Unlock()
}

func (a *Analyzer) buildTrends(ctx context.Context, activities []models.ActivityRecord) []models.ProductivityTrend {
	categories := a.scorer.Snapshot(ctx)

	byDay := make(map[string][]models.ActivityRecord)
	var order []string
	for _, act := range activities {
		if act.IsIdle {
			continue
		}
		key := act.Time().In(a.loc).Format(time.DateOnly)
		if _, ok := byDay[key]; !ok {
			order = append(order, key)
		}
		byDay[key] = append(byDay[key], act)
	}
	sort.Strings(order)

	trends := make([]models.ProductivityTrend, 0, len(order))
	for _, day := range order {
		trends = append(trends, a.dayTrend(day, byDay[day], categories))
	}
	return trends
}

func (a *Analyzer) dayTrend(day string, activities []models.ActivityRecord, categories productivity.Categories) models.ProductivityTrend {
	var total, productive int64
	productiveApps := make(map[string]int64)
	distractingApps := make(map[string]int64)
	var hourly [24]int64

	for _, act := range activities {
		total += act.Duration
		if productivity.EnrichWith(categories, act).ProductivityRating == models.RatingProductive {
			productive += act.Duration
		}
		switch categories.Rating(act.AppName) {
		case models.RatingProductive:
			productiveApps[act.AppName] += act.Duration
		case models.RatingDistracting:
			distractingApps[act.AppName] += act.Duration
		}
		hourly[act.Time().In(a.loc).Hour()] += act.Duration
	}

	ratio := 0.0
	if total > 0 {
		ratio = float64(productive) / float64(total)
	}
	focusScore := a.focus.CalculateFocusScore(activities)
	switches := len(a.focus.DetectContextSwitches(activities))

	return models.ProductivityTrend{
		Date:               day,
		ProductivityScore:  productivity.Clamp((ratio + focusScore) / 2),
		FocusScore:         focusScore,
		Efficiency:         1 - min(0.5, float64(switches)*0.01),
		ProductiveTime:     productive,
		TotalActiveTime:    total,
		ContextSwitches:    switches,
		TopProductiveApps:  topApps(productiveApps, topAppsLimit),
		TopDistractingApps: topApps(distractingApps, topAppsLimit),
		PeakHours:          peakHours(hourly, peakHoursLimit),
	}
}

// OptimizeProductivitySettings derives a work window from the last 30 days of peak hours.
func (a *Analyzer) OptimizeProductivitySettings(ctx context.Context) (models.OptimizationSettings, error) {
	settings := models.OptimizationSettings{
		WorkStartHour:        defaultStartHour,
		WorkEndHour:          defaultEndHour,
		BreakIntervalMinutes: breakIntervalMinutes,
		Recommendations:      []string{},
	}

	trends, err := a.GetProductivityTrends(ctx, optimizeDays)
	if err != nil {
		return settings, err
	}

	var freq [24]int
	for _, t := range trends {
		for _, h := range t.PeakHours {
			freq[h]++
		}
	}
	var counts [24]int64
	for h, n := range freq {
		counts[h] = int64(n)
	}
	if top := peakHours(counts, 2); len(top) == 2 {
		start, end := min(top[0], top[1]), min(max(top[0], top[1])+8, latestEndHour)
		if end > start {
			settings.WorkStartHour, settings.WorkEndHour = start, end
		}
	}

	if len(trends) == 0 {
		return settings, nil
	}

	recent := trends[max(0, len(trends)-3):]
	if avg(recent, func(t models.ProductivityTrend) float64 { return t.ProductivityScore }) < 0.6 {
		settings.Recommendations = append(settings.Recommendations,
			"Productivity has been low for the last few days; schedule focused work in your peak hours")
	}
	for _, t := range trends {
		if time.Duration(t.TotalActiveTime)*time.Millisecond > longDay {
			settings.Recommendations = append(settings.Recommendations,
				"Some days exceed 10 active hours; cap your working day to avoid burnout")
			break
		}
	}
	if avg(trends, func(t models.ProductivityTrend) float64 { return t.FocusScore }) < 0.5 {
		settings.Recommendations = append(settings.Recommendations,
			"Focus is fragmented; try longer single-task blocks with notifications muted")
	}
	if avg(trends, func(t models.ProductivityTrend) float64 { return t.Efficiency }) < 0.7 {
		settings.Recommendations = append(settings.Recommendations,
			"Frequent context switching lowers efficiency; batch communication into set times")
	}

	return settings, nil
}

func avg(trends []models.ProductivityTrend, field func(models.ProductivityTrend) float64) float64 {
	if len(trends) == 0 {
		return 0
	}
	var sum float64
	for _, t := range trends {
		sum += field(t)
	}
	return sum / float64(len(trends))
}

// topApps orders by duration descending, then name.
func topApps(durations map[string]int64, n int) []string {
	apps := make([]string, 0, len(durations))
	for app := range durations {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool {
		if durations[apps[i]] != durations[apps[j]] {
			return durations[apps[i]] > durations[apps[j]]
		}
		return apps[i] < apps[j]
	})
	if len(apps) > n {
		apps = apps[:n]
	}
	return apps
}

// peakHours returns up to n hours with a positive total, largest first; ties go to the earlier hour.
func peakHours(totals [24]int64, n int) []int {
	hours := make([]int, 0, 24)
	for h, v := range totals {
		if v > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return totals[hours[i]] > totals[hours[j]]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
