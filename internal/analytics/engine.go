// Package analytics wires the scoring, focus, session, trend and insight
// components into one engine driven by captured activities.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/actionsum/focuslens/internal/focus"
	"github.com/actionsum/focuslens/internal/insights"
	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/monitor"
	"github.com/actionsum/focuslens/internal/ports"
	"github.com/actionsum/focuslens/internal/productivity"
	"github.com/actionsum/focuslens/internal/session"
	"github.com/actionsum/focuslens/internal/trends"
)

const (
	defaultPeakHour = 9
	topAppsLimit    = 5
)

// Options tune the engine. Zero values select defaults.
type Options struct {
	Location    *time.Location
	CategoryTTL time.Duration
	TrendTTL    time.Duration
	Monitor     *monitor.ResourceMonitor
	Clock       func() time.Time
}

type Engine struct {
	store      ports.Store
	notifier   ports.Notifier
	logger     *slog.Logger
	loc        *time.Location
	now        func() time.Time
	categories *productivity.CategoryCache
	scorer     *productivity.Scorer
	focus      *focus.Detector
	segmenter  *session.Segmenter
	sessions   *session.Manager
	trends     *trends.Analyzer
	insights   *insights.Generator
	monitor    *monitor.ResourceMonitor
}

func New(store ports.Store, notifier ports.Notifier, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.CategoryTTL <= 0 {
		opts.CategoryTTL = productivity.DefaultCategoryTTL
	}
	if opts.TrendTTL <= 0 {
		opts.TrendTTL = trends.DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	categories := productivity.NewCategoryCache(store, logger,
		productivity.WithTTL(opts.CategoryTTL),
		productivity.WithClock(opts.Clock))
	scorer := productivity.NewScorer(categories, logger)
	detector := focus.NewDetector(opts.Location)
	segmenter := session.NewSegmenter(detector)

	trendOpts := []trends.Option{
		trends.WithTTL(opts.TrendTTL),
		trends.WithClock(opts.Clock),
		trends.WithLocation(opts.Location),
	}
	if opts.Monitor != nil {
		trendOpts = append(trendOpts, trends.WithMonitor(opts.Monitor))
	}

	return &Engine{
		store:      store,
		notifier:   notifier,
		logger:     logger,
		loc:        opts.Location,
		now:        opts.Clock,
		categories: categories,
		scorer:     scorer,
		focus:      detector,
		segmenter:  segmenter,
		sessions:   session.NewManager(segmenter, store, notifier, logger),
		trends:     trends.NewAnalyzer(store, scorer, detector, logger, trendOpts...),
		insights:   insights.NewGenerator(detector),
		monitor:    opts.Monitor,
	}
}

func (e *Engine) Categories() *productivity.CategoryCache { return e.categories }

// Process scores a captured activity, persists it and feeds the session segmenter.
// It returns the enriched record and the work session this activity closed, if any.
func (e *Engine) Process(ctx context.Context, activity models.ActivityRecord) (models.ActivityRecord, *models.WorkSession) {
	enriched := e.scorer.Enrich(ctx, activity)

	if err := e.store.SaveActivity(ctx, &enriched); err != nil {
		e.logger.Warn("failed to save activity",
			slog.String("app", enriched.AppName),
			slog.Any("error", err))
	}

	if e.logger.Enabled(ctx, slog.LevelDebug) {
		e.logger.Debug("scored activity",
			slog.String("app", enriched.AppName),
			slog.Float64("score", enriched.ProductivityScore),
			slog.Float64("real_time_score", e.RealTimeScore(ctx, enriched)))
	}

	closed := e.sessions.AddActivity(ctx, enriched)
	return enriched, closed
}

// RealTimeScore weighs an activity's score by machine load, time of day and the
// activity that preceded it.
func (e *Engine) RealTimeScore(ctx context.Context, activity models.ActivityRecord) float64 {
	return e.trends.CalculateRealTimeScore(ctx, activity)
}

// SessionBoundaries splits chronological activities wherever an idle gap ends a work session.
func (e *Engine) SessionBoundaries(activities []models.ActivityRecord) []session.Boundary {
	return e.segmenter.DetectSessionBoundaries(activities)
}

func (e *Engine) GetProductivityTrends(ctx context.Context, days int) ([]models.ProductivityTrend, error) {
	return e.trends.GetProductivityTrends(ctx, days)
}

func (e *Engine) OptimizeProductivitySettings(ctx context.Context) (models.OptimizationSettings, error) {
	return e.trends.OptimizeProductivitySettings(ctx)
}

// OpenSession returns the activities of the work session still being accumulated.
func (e *Engine) OpenSession() []models.ActivityRecord {
	return e.sessions.Current()
}

// AnalyzeFocus runs every focus detector over activities.
func (e *Engine) AnalyzeFocus(activities []models.ActivityRecord) models.FocusReport {
	report := models.FocusReport{
		Score:           e.focus.CalculateFocusScore(activities),
		Patterns:        e.focus.AnalyzeFocusPatterns(activities),
		Interruptions:   e.focus.GetInterruptionAnalysis(activities),
		ContextSwitches: e.focus.DetectContextSwitches(activities),
		Sessions:        e.focus.IdentifyFocusSessions(activities),
	}
	if report.ContextSwitches == nil {
		report.ContextSwitches = []models.ContextSwitch{}
	}
	if report.Sessions == nil {
		report.Sessions = []models.FocusSession{}
	}
	return report
}

// Resources reports current machine load, the heaviest apps among activities and how
// the latest activity relates to the current load.
func (e *Engine) Resources(ctx context.Context, activities []models.ActivityRecord) models.ResourceReport {
	var system models.SystemMetrics
	if e.monitor != nil {
		system = e.monitor.GetSystemMetrics(ctx)
	} else {
		system.Timestamp = e.now().UnixMilli()
	}

	report := models.ResourceReport{
		System:        system,
		IntensiveApps: monitor.DetectResourceIntensiveApps(activities),
	}
	if n := len(activities); n > 0 {
		c := monitor.CorrelateResourcesWithProductivity(activities[n-1], system)
		report.Latest = &c
	}
	return report
}

// Flush closes the open work session, e.g. on daemon shutdown.
func (e *Engine) Flush(ctx context.Context) *models.WorkSession {
	return e.sessions.EndSession(ctx)
}

// AnalyzeProductivityPatterns summarises a list of activities. It does not modify its input;
// idle records are ignored.
func (e *Engine) AnalyzeProductivityPatterns(ctx context.Context, activities []models.ActivityRecord) models.ProductivityMetrics {
	metrics := models.ProductivityMetrics{
		PeakProductivityHour: defaultPeakHour,
		TopApps:              []models.AppUsage{},
	}

	active := make([]models.ActivityRecord, 0, len(activities))
	for _, a := range activities {
		if !a.IsIdle {
			active = append(active, a)
		}
	}
	if len(active) == 0 {
		return metrics
	}

	categories := e.scorer.Snapshot(ctx)

	var hourScore [24]float64
	var hourCount [24]int
	var hourProductive [24]int64
	appTime := make(map[string]int64)

	for _, a := range active {
		enriched := productivity.EnrichWith(categories, a)
		hour := e.focus.Hour(a.Timestamp)

		metrics.TotalActiveTime += a.Duration
		switch enriched.ProductivityRating {
		case models.RatingProductive:
			metrics.ProductiveTime += a.Duration
			hourProductive[hour] += a.Duration
		case models.RatingDistracting:
			metrics.DistractingTime += a.Duration
		default:
			metrics.NeutralTime += a.Duration
		}

		hourScore[hour] += enriched.ProductivityScore
		hourCount[hour]++
		appTime[a.AppName] += a.Duration
	}

	for h := range hourScore {
		if hourCount[h] > 0 {
			metrics.HourlyProductivity[h] = hourScore[h] / float64(hourCount[h])
		}
	}

	peak := -1
	for h, d := range hourProductive {
		if d > 0 && (peak < 0 || d > hourProductive[peak]) {
			peak = h
		}
	}
	if peak >= 0 {
		metrics.PeakProductivityHour = peak
	}

	metrics.ProductivityScore = productivity.CalculateProductivityScore(categories, active)
	metrics.FocusScore = e.focus.CalculateFocusScore(active)
	metrics.ContextSwitches = len(e.focus.DetectContextSwitches(active))
	metrics.TopApps = topApps(appTime, topAppsLimit)

	return metrics
}

// GenerateInsights runs an insight pass over the last days days, persists the insights
// and hands the report to the notifier.
func (e *Engine) GenerateInsights(ctx context.Context, days int) (models.InsightReport, error) {
	if days < 1 {
		days = 1
	}
	now := e.now()
	y, m, d := now.In(e.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, e.loc).AddDate(0, 0, -(days - 1))

	activities, err := e.store.GetActivities(ctx, ports.ActivityFilter{Start: start, End: now})
	if err != nil {
		return models.InsightReport{}, fmt.Errorf("failed to load activities: %w", err)
	}

	dayTrends, err := e.trends.GetProductivityTrends(ctx, days)
	if err != nil {
		return models.InsightReport{}, err
	}

	categories := e.scorer.Snapshot(ctx)
	active := make([]models.ActivityRecord, 0, len(activities))
	for _, a := range activities {
		if !a.IsIdle {
			active = append(active, productivity.EnrichWith(categories, a))
		}
	}

	report := e.insights.Generate(active, dayTrends, now)

	for i := range report.Insights {
		if err := e.store.SaveInsight(ctx, &report.Insights[i]); err != nil {
			e.logger.Warn("failed to save insight",
				slog.String("type", report.Insights[i].Type),
				slog.Any("error", err))
		}
	}

	if e.notifier != nil && len(report.Insights) > 0 {
		e.notifier.Notify(ctx, ports.Notification{
			Kind:    ports.KindInsights,
			At:      now,
			Payload: report,
		})
	}

	e.logger.Info("insights generated",
		slog.Int("days", days),
		slog.Int("achievements", len(report.Achievements)),
		slog.Int("warnings", len(report.Warnings)))

	return report, nil
}

func topApps(durations map[string]int64, n int) []models.AppUsage {
	apps := make([]models.AppUsage, 0, len(durations))
	for app, d := range durations {
		apps = append(apps, models.AppUsage{AppName: app, Duration: d})
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Duration != apps[j].Duration {
			return apps[i].Duration > apps[j].Duration
		}
		return apps[i].AppName < apps[j].AppName
	})
	if len(apps) > n {
		apps = apps[:n]
	}
	return apps
}
