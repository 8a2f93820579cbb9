package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/actionsum/focuslens/internal/config"
	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/ports"
)

type fakeStore struct {
	activities []models.ActivityRecord
	filter     ports.ActivityFilter
	err        error
}

func (f *fakeStore) GetActivities(ctx context.Context, filter ports.ActivityFilter) ([]models.ActivityRecord, error) {
	f.filter = filter
	return f.activities, f.err
}

func (f *fakeStore) SaveActivity(ctx context.Context, a *models.ActivityRecord) error { return nil }

type fakeAnalyzer struct {
	got []models.ActivityRecord
}

func (f *fakeAnalyzer) AnalyzeProductivityPatterns(ctx context.Context, acts []models.ActivityRecord) models.ProductivityMetrics {
	f.got = acts
	return models.ProductivityMetrics{ProductivityScore: 0.8, FocusScore: 0.6, PeakProductivityHour: 10}
}

func newTestReporter(store *fakeStore, analyzer *fakeAnalyzer, now time.Time) *Reporter {
	cfg := config.Default()
	cfg.Report.TimeZone = "UTC"
	r := New(cfg, store, analyzer)
	r.now = func() time.Time { return now }
	return r
}

func TestGetPeriod(t *testing.T) {
	// Wednesday
	now := time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period    string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{"day", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), false},
		{"today", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), false},
		{"week", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), false},
		{"month", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), false},
		{"year", time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, err := GetPeriod(tt.period, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetPeriod(%q) error = %v, wantErr %v", tt.period, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("GetPeriod(%q) = [%v, %v), want [%v, %v)", tt.period, got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestGetPeriodSundayWeek(t *testing.T) {
	sunday := time.Date(2024, 3, 17, 8, 0, 0, 0, time.UTC)
	got, err := GetPeriod("week", sunday)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC); !got.Start.Equal(want) {
		t.Errorf("week start = %v, want %v", got.Start, want)
	}
}

func TestGenerateReport(t *testing.T) {
	now := time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)
	base := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC).UnixMilli()
	store := &fakeStore{activities: []models.ActivityRecord{
		{AppName: "code", Timestamp: base, Duration: 30 * 60_000, Category: "development", ProductivityRating: models.RatingProductive},
		{AppName: "firefox", Timestamp: base + 30*60_000, Duration: 10 * 60_000, Category: "browser", ProductivityRating: models.RatingNeutral},
		{AppName: "code", Timestamp: base + 40*60_000, Duration: 20 * 60_000, Category: "development", ProductivityRating: models.RatingProductive},
		{AppName: "code", Timestamp: base + 60*60_000, Duration: 60 * 60_000, IsIdle: true},
	}}
	analyzer := &fakeAnalyzer{}
	r := newTestReporter(store, analyzer, now)

	report, err := r.GenerateReport(context.Background(), "day")
	if err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	if !store.filter.Start.Equal(time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("filter start = %v, want midnight", store.filter.Start)
	}
	if len(analyzer.got) != 3 {
		t.Errorf("analyzer received %d activities, want 3 with idle excluded", len(analyzer.got))
	}
	if report.TotalDuration != 60*60_000 {
		t.Errorf("TotalDuration = %d, want 1h", report.TotalDuration)
	}
	if len(report.Apps) != 2 {
		t.Fatalf("apps = %d, want 2", len(report.Apps))
	}
	code := report.Apps[0]
	if code.AppName != "code" || code.Duration != 50*60_000 || code.Category != "development" {
		t.Errorf("first app = %+v, want code 50m development", code)
	}
	if d := code.Percentage - 100.0*5/6; d > 1e-9 || d < -1e-9 {
		t.Errorf("code percentage = %v, want 83.33", code.Percentage)
	}
	if report.Metrics.PeakProductivityHour != 10 {
		t.Errorf("metrics not taken from analyzer: %+v", report.Metrics)
	}
}

func TestGenerateReportKeepsIdleWhenConfigured(t *testing.T) {
	store := &fakeStore{activities: []models.ActivityRecord{
		{AppName: "code", Duration: 1000},
		{AppName: "code", Duration: 1000, IsIdle: true},
	}}
	analyzer := &fakeAnalyzer{}
	r := newTestReporter(store, analyzer, time.Now())
	r.config.Report.ExcludeIdle = false

	report, err := r.GenerateReport(context.Background(), "week")
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalDuration != 2000 {
		t.Errorf("TotalDuration = %d, want 2000", report.TotalDuration)
	}
}

func TestGenerateReportErrors(t *testing.T) {
	r := newTestReporter(&fakeStore{err: errors.New("db closed")}, &fakeAnalyzer{}, time.Now())
	if _, err := r.GenerateReport(context.Background(), "day"); err == nil {
		t.Error("expected store error")
	}
	if _, err := r.GenerateReport(context.Background(), "decade"); err == nil {
		t.Error("expected invalid period error")
	}
}

func TestFormatReportText(t *testing.T) {
	report := &models.Report{
		Period:        models.ReportPeriod{Type: "day", Start: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		Metrics:       models.ProductivityMetrics{ProductivityScore: 0.75, FocusScore: 0.5, PeakProductivityHour: 9},
		TotalDuration: 90 * 60_000,
		Apps: []models.AppSummary{
			{AppName: "code", Category: "development", Rating: models.RatingProductive, Duration: 60 * 60_000, Percentage: 66.7},
			{AppName: "slack", Category: "communication", Rating: models.RatingNeutral, Duration: 30 * 60_000, Percentage: 33.3},
		},
	}

	out := FormatReportText(report)
	for _, want := range []string{"Productivity Report - day", "1h 30m", "75%", "09:00", "code", "development", "66.7%", "slack"} {
		if !strings.Contains(out, want) {
			t.Errorf("report text missing %q:\n%s", want, out)
		}
	}

	empty := FormatReportText(&models.Report{Period: models.ReportPeriod{Type: "week"}})
	if !strings.Contains(empty, "No activity recorded") {
		t.Errorf("empty report text = %q", empty)
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON(&models.Report{TotalDuration: 42})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["total_duration"] != float64(42) {
		t.Errorf("total_duration = %v, want 42", decoded["total_duration"])
	}
}

func TestFormatInsightsText(t *testing.T) {
	report := models.InsightReport{
		Achievements: []models.Achievement{{Title: "Deep Work", Description: "3h of focus"}},
		Warnings: []models.ProductivityWarning{{
			Type:            "burnout_risk",
			Severity:        models.SeverityHigh,
			Message:         "Long days for 5 days",
			Recommendations: []string{"Take a day off"},
		}},
		Insights: []models.Insight{
			{Type: "burnout_risk", Title: "Burnout Risk", Priority: models.SeverityHigh},
			{Type: "achievement", Title: "Deep Work", Priority: models.SeverityLow},
			{Type: "peak_hours", Title: "Peak Hours", Description: "You do your best work at 10:00", Priority: models.SeverityLow},
		},
	}

	out := FormatInsightsText(report)
	for _, want := range []string{"Deep Work", "[high] Long days", "Take a day off", "Observations", "Peak Hours"} {
		if !strings.Contains(out, want) {
			t.Errorf("insights text missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "Deep Work") != 1 {
		t.Errorf("achievement listed more than once:\n%s", out)
	}

	if got := FormatInsightsText(models.InsightReport{}); !strings.Contains(got, "Not enough data") {
		t.Errorf("empty insights text = %q", got)
	}
}

func TestFormatOtherViews(t *testing.T) {
	trends := FormatTrendsText([]models.ProductivityTrend{{Date: "2024-03-13", ProductivityScore: 0.8, TopProductiveApps: []string{"code"}}})
	if !strings.Contains(trends, "2024-03-13") || !strings.Contains(trends, "code") {
		t.Errorf("trends text:\n%s", trends)
	}

	opt := FormatOptimizationText(models.OptimizationSettings{WorkStartHour: 9, WorkEndHour: 17, BreakIntervalMinutes: 90, Recommendations: []string{"Protect your mornings"}})
	if !strings.Contains(opt, "09:00 - 17:00") || !strings.Contains(opt, "90 minutes") || !strings.Contains(opt, "Protect your mornings") {
		t.Errorf("optimization text:\n%s", opt)
	}

	res := FormatResourcesText(models.SystemMetrics{CPUUsage: 42.5}, []models.ResourceIntensiveApp{{AppName: "chrome", AverageCPU: 60, Category: models.UsageHeavy}})
	if !strings.Contains(res, "42.5%") || !strings.Contains(res, "chrome") || !strings.Contains(res, "heavy") {
		t.Errorf("resources text:\n%s", res)
	}

	cats := FormatCategoriesText([]models.AppCategory{{AppName: "code", Category: "development", ProductivityRating: models.RatingProductive, IsUserDefined: true}})
	if !strings.Contains(cats, "development") || !strings.Contains(cats, "user") {
		t.Errorf("categories text:\n%s", cats)
	}
}
