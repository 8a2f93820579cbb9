// Package web serves the analytics engine over a small read-only JSON API.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/actionsum/focuslens/internal/config"
	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/ports"
	"github.com/actionsum/focuslens/internal/reporter"
	"github.com/actionsum/focuslens/internal/session"
	"github.com/actionsum/focuslens/version"
)

const (
	defaultDays     = 7
	maxDays         = 365
	defaultLimit    = 100
	defaultInsights = 20
)

// Store is the read side of the repository used by the API.
type Store interface {
	ports.ActivityStore
	GetLatestActivity(ctx context.Context) (*models.ActivityRecord, error)
	GetWorkSessions(ctx context.Context, since time.Time) ([]models.WorkSession, error)
	GetInsights(ctx context.Context, limit int) ([]models.Insight, error)
}

// Analytics is the engine surface exposed over HTTP.
type Analytics interface {
	reporter.Analyzer
	GenerateInsights(ctx context.Context, days int) (models.InsightReport, error)
	GetProductivityTrends(ctx context.Context, days int) ([]models.ProductivityTrend, error)
	OptimizeProductivitySettings(ctx context.Context) (models.OptimizationSettings, error)
	AnalyzeFocus(activities []models.ActivityRecord) models.FocusReport
	Resources(ctx context.Context, activities []models.ActivityRecord) models.ResourceReport
	OpenSession() []models.ActivityRecord
	RealTimeScore(ctx context.Context, activity models.ActivityRecord) float64
	SessionBoundaries(activities []models.ActivityRecord) []session.Boundary
}

type Handler struct {
	config   *config.Config
	store    Store
	engine   Analytics
	reporter *reporter.Reporter
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewHandler(cfg *config.Config, store Store, engine Analytics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}
	return &Handler{
		config:   cfg,
		store:    store,
		engine:   engine,
		reporter: reporter.New(cfg, store, engine),
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/activities", h.get(h.handleActivities))
	mux.HandleFunc("/api/report", h.get(h.handleReport))
	mux.HandleFunc("/api/trends", h.get(h.handleTrends))
	mux.HandleFunc("/api/insights", h.get(h.handleInsights))
	mux.HandleFunc("/api/focus", h.get(h.handleFocus))
	mux.HandleFunc("/api/sessions", h.get(h.handleSessions))
	mux.HandleFunc("/api/resources", h.get(h.handleResources))
	mux.HandleFunc("/api/optimize", h.get(h.handleOptimize))
	mux.HandleFunc("/api/status", h.get(h.handleStatus))

	mux.HandleFunc("/health", h.handleHealth)
}

func (h *Handler) get(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// handleActivities accepts either ?period=day|week|month or ?start=&end= (RFC 3339),
// plus optional app, limit and offset. Without a range it returns the last 24 hours.
func (h *Handler) handleActivities(w http.ResponseWriter, r *http.Request) {
	filter, err := h.activityFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	filter.Limit = defaultLimit
	if v := q.Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = l
	}
	if v := q.Get("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil || o < 0 {
			http.Error(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Offset = o
	}
	if apps := q["app"]; len(apps) > 0 {
		filter.AppNames = apps
	}

	activities, err := h.store.GetActivities(r.Context(), filter)
	if err != nil {
		h.serverError(w, "Failed to fetch activities", err)
		return
	}
	if activities == nil {
		activities = []models.ActivityRecord{}
	}

	h.respondJSON(w, activities)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}
	if _, err := reporter.GetPeriod(periodType, h.now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(r.Context(), periodType)
	if err != nil {
		h.serverError(w, "Failed to generate report", err)
		return
	}

	h.respondJSON(w, report)
}

func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trends, err := h.engine.GetProductivityTrends(r.Context(), days)
	if err != nil {
		h.serverError(w, "Failed to compute trends", err)
		return
	}
	if trends == nil {
		trends = []models.ProductivityTrend{}
	}

	h.respondJSON(w, trends)
}

// handleInsights runs a fresh insight pass, or with ?stored=true lists persisted insights.
func (h *Handler) handleInsights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("stored") == "true" {
		limit := defaultInsights
		if v := q.Get("limit"); v != "" {
			l, err := strconv.Atoi(v)
			if err != nil || l <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = l
		}
		stored, err := h.store.GetInsights(r.Context(), limit)
		if err != nil {
			h.serverError(w, "Failed to fetch insights", err)
			return
		}
		if stored == nil {
			stored = []models.Insight{}
		}
		h.respondJSON(w, stored)
		return
	}

	days, err := parseDays(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.engine.GenerateInsights(r.Context(), days)
	if err != nil {
		h.serverError(w, "Failed to generate insights", err)
		return
	}

	h.respondJSON(w, report)
}

func (h *Handler) handleFocus(w http.ResponseWriter, r *http.Request) {
	filter, err := h.activityFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	activities, err := h.store.GetActivities(r.Context(), filter)
	if err != nil {
		h.serverError(w, "Failed to fetch activities", err)
		return
	}

	h.respondJSON(w, h.engine.AnalyzeFocus(activeOnly(activities)))
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	since := midnight(h.now().In(h.loc)).AddDate(0, 0, -(days - 1))
	sessions, err := h.store.GetWorkSessions(r.Context(), since)
	if err != nil {
		h.serverError(w, "Failed to fetch sessions", err)
		return
	}
	if sessions == nil {
		sessions = []models.WorkSession{}
	}

	activities, err := h.store.GetActivities(r.Context(), ports.ActivityFilter{Start: since})
	if err != nil {
		h.serverError(w, "Failed to fetch activities", err)
		return
	}
	active := activeOnly(activities)

	response := map[string]interface{}{
		"sessions": sessions,
		"segments": segments(active, h.engine.SessionBoundaries(active)),
	}
	if open := h.engine.OpenSession(); len(open) > 0 {
		response["open_session"] = openSessionSummary(open)
	}

	h.respondJSON(w, response)
}

func (h *Handler) handleResources(w http.ResponseWriter, r *http.Request) {
	period, _ := reporter.GetPeriod("day", h.now().In(h.loc))
	activities, err := h.store.GetActivities(r.Context(), ports.ActivityFilter{Start: period.Start, End: period.End})
	if err != nil {
		h.serverError(w, "Failed to fetch activities", err)
		return
	}

	h.respondJSON(w, h.engine.Resources(r.Context(), activities))
}

func (h *Handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	settings, err := h.engine.OptimizeProductivitySettings(r.Context())
	if err != nil {
		h.serverError(w, "Failed to compute settings", err)
		return
	}

	h.respondJSON(w, settings)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	latest, _ := h.store.GetLatestActivity(r.Context())

	status := map[string]interface{}{
		"running":       true,
		"version":       version.Version,
		"poll_interval": h.config.Tracker.PollInterval.String(),
		"database_path": h.config.Database.Path,
		"exclude_idle":  h.config.Report.ExcludeIdle,
		"time_zone":     h.loc.String(),
	}

	if latest != nil {
		status["latest_activity"] = map[string]interface{}{
			"app_name":            latest.AppName,
			"window_title":        latest.WindowTitle,
			"timestamp":           latest.Timestamp,
			"duration":            latest.Duration,
			"productivity_rating": latest.ProductivityRating,
		}
		status["real_time_score"] = h.engine.RealTimeScore(r.Context(), *latest)
	}
	if open := h.engine.OpenSession(); len(open) > 0 {
		status["open_session"] = openSessionSummary(open)
	}

	h.respondJSON(w, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

func (h *Handler) activityFilter(r *http.Request) (ports.ActivityFilter, error) {
	q := r.URL.Query()

	if periodType := q.Get("period"); periodType != "" {
		period, err := reporter.GetPeriod(periodType, h.now().In(h.loc))
		if err != nil {
			return ports.ActivityFilter{}, err
		}
		return ports.ActivityFilter{Start: period.Start, End: period.End}, nil
	}

	var filter ports.ActivityFilter
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid start: %w", err)
		}
		filter.Start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid end: %w", err)
		}
		filter.End = t
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && !filter.End.After(filter.Start) {
		return filter, fmt.Errorf("end must be after start")
	}
	if filter.Start.IsZero() && filter.End.IsZero() {
		filter.Start = h.now().Add(-24 * time.Hour)
	}
	return filter, nil
}

func parseDays(r *http.Request) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return defaultDays, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 || days > maxDays {
		return 0, fmt.Errorf("days must be between 1 and %d", maxDays)
	}
	return days, nil
}

func activeOnly(activities []models.ActivityRecord) []models.ActivityRecord {
	active := make([]models.ActivityRecord, 0, len(activities))
	for _, a := range activities {
		if !a.IsIdle {
			active = append(active, a)
		}
	}
	return active
}

func openSessionSummary(open []models.ActivityRecord) map[string]interface{} {
	first, last := open[0], open[len(open)-1]
	return map[string]interface{}{
		"start_time":     first.Timestamp,
		"last_activity":  last.End(),
		"activity_count": len(open),
		"current_app":    last.AppName,
	}
}

// segments describes each activity run between idle gaps, including runs too short to be saved
// as work sessions.
func segments(activities []models.ActivityRecord, bounds []session.Boundary) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(bounds))
	for _, b := range bounds {
		out = append(out, map[string]interface{}{
			"start_time":     b.StartTime,
			"end_time":       b.EndTime,
			"activity_count": b.End - b.Start,
			"first_app":      activities[b.Start].AppName,
		})
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (h *Handler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), http.StatusInternalServerError)
}

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("error encoding JSON", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
