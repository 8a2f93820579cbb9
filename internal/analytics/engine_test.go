package analytics

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/ports"
)

type memStore struct {
	mu            sync.Mutex
	activities    []models.ActivityRecord
	categories    []models.AppCategory
	sessions      []models.WorkSession
	focusSessions []models.FocusSession
	blocks        []models.ProductivityBlock
	insights      []models.Insight
	metrics       []models.SystemMetrics
	saveErr       error
}

var _ ports.Store = (*memStore)(nil)

func (s *memStore) GetActivities(ctx context.Context, f ports.ActivityFilter) ([]models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActivityRecord
	for _, a := range s.activities {
		if !f.Start.IsZero() && a.Timestamp < f.Start.UnixMilli() {
			continue
		}
		if !f.End.IsZero() && a.Timestamp >= f.End.UnixMilli() {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) SaveActivity(ctx context.Context, a *models.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	a.ID = uint(len(s.activities) + 1)
	s.activities = append(s.activities, *a)
	return nil
}

func (s *memStore) GetAppCategories(ctx context.Context) ([]models.AppCategory, error) {
	return s.categories, nil
}

func (s *memStore) UpsertAppCategory(ctx context.Context, c *models.AppCategory) error {
	s.categories = append(s.categories, *c)
	return nil
}

func (s *memStore) SaveWorkSession(ctx context.Context, ws *models.WorkSession) error {
	s.sessions = append(s.sessions, *ws)
	return nil
}

func (s *memStore) SaveFocusSession(ctx context.Context, fs *models.FocusSession) error {
	s.focusSessions = append(s.focusSessions, *fs)
	return nil
}

func (s *memStore) SaveProductivityBlock(ctx context.Context, b *models.ProductivityBlock) error {
	s.blocks = append(s.blocks, *b)
	return nil
}

func (s *memStore) GetWorkSessions(ctx context.Context, since time.Time) ([]models.WorkSession, error) {
	return s.sessions, nil
}

func (s *memStore) SaveInsight(ctx context.Context, in *models.Insight) error {
	s.insights = append(s.insights, *in)
	return nil
}

func (s *memStore) SaveSystemMetrics(ctx context.Context, m *models.SystemMetrics) error {
	s.metrics = append(s.metrics, *m)
	return nil
}

type recorder struct {
	got []ports.Notification
}

func (r *recorder) Notify(ctx context.Context, n ports.Notification) {
	r.got = append(r.got, n)
}

var now = time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

func newTestEngine(store *memStore, notifier ports.Notifier) *Engine {
	store.categories = []models.AppCategory{
		{AppName: "VSCode", Category: "development", ProductivityRating: models.RatingProductive},
		{AppName: "youtube", Category: "media", ProductivityRating: models.RatingDistracting},
		{AppName: "slack", Category: "communication", ProductivityRating: models.RatingNeutral},
	}
	return New(store, notifier, nil, Options{
		Location: time.UTC,
		Clock:    func() time.Time { return now },
	})
}

func assertFloatNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestAnalyzeProductivityPatternsEmpty(t *testing.T) {
	e := newTestEngine(&memStore{}, nil)
	m := e.AnalyzeProductivityPatterns(context.Background(), nil)

	if m.TotalActiveTime != 0 || m.PeakProductivityHour != 9 || m.ProductivityScore != 0 {
		t.Errorf("metrics = %+v, want zeroed with peak hour 9", m)
	}
}

func TestAnalyzeProductivityPatternsSingleProductiveActivity(t *testing.T) {
	e := newTestEngine(&memStore{}, nil)
	activities := []models.ActivityRecord{{
		AppName:         "VSCode",
		Timestamp:       time.Date(2024, 3, 6, 11, 0, 0, 0, time.UTC).UnixMilli(),
		Duration:        400000,
		CPUUsage:        models.Float(40),
		ContextSwitches: models.Int(2),
	}}

	m := e.AnalyzeProductivityPatterns(context.Background(), activities)
	assertFloatNear(t, "productivity", m.ProductivityScore, 1.0)
	if m.PeakProductivityHour != 11 {
		t.Errorf("peak hour = %d, want 11", m.PeakProductivityHour)
	}
	if m.ProductiveTime != 400000 {
		t.Errorf("productive time = %d", m.ProductiveTime)
	}
}

func TestAnalyzeProductivityPatternsIsIdempotent(t *testing.T) {
	e := newTestEngine(&memStore{}, nil)
	base := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC).UnixMilli()
	activities := []models.ActivityRecord{
		{AppName: "VSCode", Timestamp: base, Duration: 20 * 60000},
		{AppName: "youtube", Timestamp: base + 20*60000, Duration: 5 * 60000},
		{AppName: "slack", Timestamp: base + 25*60000, Duration: 10 * 60000},
		{AppName: "slack", Timestamp: base + 35*60000, Duration: 10 * 60000, IsIdle: true},
	}
	snapshot := append([]models.ActivityRecord(nil), activities...)

	first := e.AnalyzeProductivityPatterns(context.Background(), activities)
	second := e.AnalyzeProductivityPatterns(context.Background(), activities)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(activities, snapshot) {
		t.Error("input was modified")
	}

	if first.TotalActiveTime != 35*60000 {
		t.Errorf("total active = %d, want idle excluded", first.TotalActiveTime)
	}
	if first.ProductiveTime != 20*60000 || first.DistractingTime != 5*60000 || first.NeutralTime != 10*60000 {
		t.Errorf("split = %d/%d/%d", first.ProductiveTime, first.NeutralTime, first.DistractingTime)
	}
	if first.ContextSwitches != 2 {
		t.Errorf("switches = %d, want 2", first.ContextSwitches)
	}
	if len(first.TopApps) != 3 || first.TopApps[0].AppName != "VSCode" {
		t.Errorf("top apps = %+v", first.TopApps)
	}
}

func TestProcessEnrichesPersistsAndSegments(t *testing.T) {
	store := &memStore{}
	notifier := &recorder{}
	e := newTestEngine(store, notifier)
	ctx := context.Background()
	base := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC).UnixMilli()

	enriched, closed := e.Process(ctx, models.ActivityRecord{AppName: "VSCode", Timestamp: base, Duration: 12 * 60000})
	if closed != nil {
		t.Fatal("first activity closed a session")
	}
	if enriched.ProductivityRating != models.RatingProductive || enriched.Category != "development" {
		t.Errorf("enriched = %+v", enriched)
	}
	if len(store.activities) != 1 || store.activities[0].ProductivityScore != enriched.ProductivityScore {
		t.Errorf("stored = %+v", store.activities)
	}

	_, closed = e.Process(ctx, models.ActivityRecord{AppName: "slack", Timestamp: base + 30*60000, Duration: 60000})
	if closed == nil {
		t.Fatal("idle gap did not close the session")
	}
	if len(store.sessions) != 1 || len(notifier.got) != 1 {
		t.Errorf("sessions = %d, notifications = %d", len(store.sessions), len(notifier.got))
	}

	if ws := e.Flush(ctx); ws != nil {
		t.Errorf("one-minute session survived Flush: %+v", ws)
	}
}

func TestProcessContinuesWhenSaveFails(t *testing.T) {
	store := &memStore{saveErr: errors.New("readonly database")}
	e := newTestEngine(store, nil)

	enriched, _ := e.Process(context.Background(), models.ActivityRecord{AppName: "VSCode", Timestamp: now.UnixMilli(), Duration: 60000})
	if enriched.ProductivityRating != models.RatingProductive {
		t.Errorf("rating = %s", enriched.ProductivityRating)
	}
	if got := len(e.OpenSession()); got != 1 {
		t.Errorf("buffered activities = %d, want 1", got)
	}
}

func TestGenerateInsights(t *testing.T) {
	store := &memStore{}
	notifier := &recorder{}
	e := newTestEngine(store, notifier)
	ctx := context.Background()

	for day := 1; day <= 6; day++ {
		ts := time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC).UnixMilli()
		store.activities = append(store.activities,
			models.ActivityRecord{AppName: "VSCode", Timestamp: ts, Duration: 3 * 3600000},
			models.ActivityRecord{AppName: "youtube", Timestamp: ts + 3*3600000, Duration: 10 * 60000},
		)
	}

	report, err := e.GenerateInsights(ctx, 7)
	if err != nil {
		t.Fatalf("GenerateInsights: %v", err)
	}
	if len(report.Insights) == 0 {
		t.Fatal("no insights generated")
	}
	if len(store.insights) != len(report.Insights) {
		t.Errorf("persisted %d of %d insights", len(store.insights), len(report.Insights))
	}
	if len(notifier.got) != 1 || notifier.got[0].Kind != ports.KindInsights {
		t.Errorf("notifications = %+v", notifier.got)
	}

	var marathon, distraction bool
	for _, a := range report.Achievements {
		if a.Type == "focus_marathon" {
			marathon = true
		}
	}
	for _, in := range report.Insights {
		if in.Type == "top_distraction" {
			distraction = true
		}
	}
	if !marathon || !distraction {
		t.Errorf("marathon = %v, distraction = %v in %+v", marathon, distraction, report)
	}
}

func TestAnalyzeFocus(t *testing.T) {
	e := newTestEngine(&memStore{}, nil)

	empty := e.AnalyzeFocus(nil)
	if empty.Score != 0 || empty.ContextSwitches == nil || empty.Sessions == nil {
		t.Errorf("AnalyzeFocus(nil) = %+v, want zero score and empty slices", empty)
	}

	base := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC).UnixMilli()
	report := e.AnalyzeFocus([]models.ActivityRecord{
		{AppName: "VSCode", Timestamp: base, Duration: 40 * 60000},
		{AppName: "slack", Timestamp: base + 40*60000, Duration: 5000},
		{AppName: "VSCode", Timestamp: base + 40*60000 + 5000, Duration: 20 * 60000},
	})
	if len(report.ContextSwitches) != 2 {
		t.Errorf("switches = %d, want 2", len(report.ContextSwitches))
	}
	if len(report.Sessions) != 2 {
		t.Errorf("focus sessions = %d, want 2", len(report.Sessions))
	}
	if report.Score <= 0 || report.Score > 1 {
		t.Errorf("score = %v, want within (0, 1]", report.Score)
	}
}

func TestResourcesWithoutMonitor(t *testing.T) {
	e := newTestEngine(&memStore{}, nil)

	report := e.Resources(context.Background(), nil)
	if report.System != (models.SystemMetrics{Timestamp: now.UnixMilli()}) {
		t.Errorf("system = %+v, want zeroed metrics stamped now", report.System)
	}
	if report.Latest != nil {
		t.Errorf("latest = %+v, want nil without activities", report.Latest)
	}

	report = e.Resources(context.Background(), []models.ActivityRecord{
		{AppName: "VSCode", Timestamp: now.UnixMilli() - 600000, Duration: 600000, CPUUsage: models.Float(90), MemoryUsage: models.Float(20)},
	})
	if report.Latest == nil {
		t.Fatal("latest correlation missing")
	}
	if report.Latest.CPUImpact != models.ImpactLevelHigh {
		t.Errorf("cpu impact = %s, want high", report.Latest.CPUImpact)
	}
	if len(report.IntensiveApps) != 1 || report.IntensiveApps[0].AppName != "VSCode" {
		t.Errorf("intensive apps = %+v", report.IntensiveApps)
	}
}

func TestOpenSession(t *testing.T) {
	e := newTestEngine(&memStore{}, nil)
	if got := e.OpenSession(); len(got) != 0 {
		t.Fatalf("OpenSession() = %d activities before any processing", len(got))
	}

	e.Process(context.Background(), models.ActivityRecord{AppName: "VSCode", Timestamp: now.UnixMilli(), Duration: 60000})
	got := e.OpenSession()
	if len(got) != 1 || got[0].Category != "development" {
		t.Errorf("OpenSession() = %+v, want the enriched activity", got)
	}
}

func TestRealTimeScore(t *testing.T) {
	tests := []struct {
		name string
		hour int
		want float64
	}{
		{name: "morning peak", hour: 10, want: 0.55},
		{name: "working hours", hour: 12, want: 0.5},
		{name: "evening", hour: 20, want: 0.45},
		{name: "night", hour: 3, want: 0.35},
	}

	e := newTestEngine(&memStore{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := time.Date(2024, 3, 6, tt.hour, 0, 0, 0, time.UTC)
			a := models.ActivityRecord{AppName: "slack", Timestamp: at.UnixMilli(), Duration: 60000}
			assertFloatNear(t, "RealTimeScore", e.RealTimeScore(context.Background(), a), tt.want)
		})
	}
}

func TestProcessLogsRealTimeScoreAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := &memStore{}
	e := newTestEngine(store, nil)
	e.logger = logger

	e.Process(context.Background(), models.ActivityRecord{AppName: "VSCode", Timestamp: now.UnixMilli(), Duration: 60000})

	if !strings.Contains(buf.String(), "real_time_score=") {
		t.Errorf("debug log = %q, want a real_time_score attribute", buf.String())
	}
}

func TestSessionBoundaries(t *testing.T) {
	e := newTestEngine(&memStore{}, nil)
	start := now.Add(-2 * time.Hour).UnixMilli()
	activities := []models.ActivityRecord{
		{AppName: "VSCode", Timestamp: start, Duration: 600000},
		{AppName: "slack", Timestamp: start + 600000, Duration: 60000},
		{AppName: "VSCode", Timestamp: start + 3600000, Duration: 60000},
	}

	got := e.SessionBoundaries(activities)
	if len(got) != 2 {
		t.Fatalf("boundaries = %+v, want 2", got)
	}
	if got[0].Start != 0 || got[0].End != 2 || got[0].EndTime != start+660000 {
		t.Errorf("first boundary = %+v", got[0])
	}
	if got[1].Start != 2 || got[1].StartTime != start+3600000 {
		t.Errorf("second boundary = %+v", got[1])
	}
	if e.SessionBoundaries(nil) != nil {
		t.Error("SessionBoundaries(nil) should be empty")
	}
}
