package monitor

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/pkg/sysinfo"
)

type fakeCollector struct {
	snap *sysinfo.Snapshot
	err  error
}

func (f *fakeCollector) Collect() (*sysinfo.Snapshot, error) {
	return f.snap, f.err
}

type fakeMetricsStore struct {
	mu    sync.Mutex
	saved []models.SystemMetrics
}

func (f *fakeMetricsStore) SaveSystemMetrics(ctx context.Context, m *models.SystemMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *m)
	return nil
}

func (f *fakeMetricsStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func assertFloatNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestGetSystemMetricsFallsBackToZero(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	m := NewResourceMonitor(&fakeCollector{err: errors.New("collector unavailable")}, nil, nil)
	m.now = func() time.Time { return now }

	got := m.GetSystemMetrics(context.Background())
	if got != (models.SystemMetrics{Timestamp: now.UnixMilli()}) {
		t.Errorf("metrics = %+v, want zeroed", got)
	}
}

func TestGetSystemMetrics(t *testing.T) {
	ts := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	m := NewResourceMonitor(&fakeCollector{snap: &sysinfo.Snapshot{Timestamp: ts, CPUUsage: 12, MemoryUsage: 40, LoadAverage: 0.5}}, nil, nil)

	got := m.GetSystemMetrics(context.Background())
	if got.CPUUsage != 12 || got.MemoryUsage != 40 || got.Timestamp != ts.UnixMilli() {
		t.Errorf("metrics = %+v", got)
	}
}

func TestCorrelateResourcesWithProductivity(t *testing.T) {
	tests := []struct {
		name      string
		activity  models.ActivityRecord
		metrics   models.SystemMetrics
		wantMem   models.ImpactLevel
		wantCPU   models.ImpactLevel
		wantScore float64
	}{
		{
			name:      "efficient sustained work",
			activity:  models.ActivityRecord{AppName: "code", Duration: 10 * 60000, CPUUsage: models.Float(20)},
			metrics:   models.SystemMetrics{MemoryUsage: 40},
			wantMem:   models.ImpactLevelLow,
			wantCPU:   models.ImpactLevelLow,
			wantScore: 1.0,
		},
		{
			name:      "pressured machine",
			activity:  models.ActivityRecord{AppName: "build", Duration: 60000, CPUUsage: models.Float(90)},
			metrics:   models.SystemMetrics{MemoryUsage: 85, DiskUsage: 95},
			wantMem:   models.ImpactLevelHigh,
			wantCPU:   models.ImpactLevelHigh,
			wantScore: 0.2,
		},
		{
			name:      "moderate load uses system cpu",
			activity:  models.ActivityRecord{AppName: "browser", Duration: 60000},
			metrics:   models.SystemMetrics{CPUUsage: 65, MemoryUsage: 70},
			wantMem:   models.ImpactLevelMedium,
			wantCPU:   models.ImpactLevelMedium,
			wantScore: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CorrelateResourcesWithProductivity(tt.activity, tt.metrics)
			if got.MemoryImpact != tt.wantMem || got.CPUImpact != tt.wantCPU {
				t.Errorf("impact = %s/%s, want %s/%s", got.MemoryImpact, got.CPUImpact, tt.wantMem, tt.wantCPU)
			}
			assertFloatNear(t, "performance", got.PerformanceScore, tt.wantScore)
		})
	}
}

func TestDetectResourceIntensiveApps(t *testing.T) {
	activities := []models.ActivityRecord{
		{AppName: "ide", Duration: 4 * 3600000, CPUUsage: models.Float(60), MemoryUsage: models.Float(50)},
		{AppName: "ide", Duration: 4 * 3600000, CPUUsage: models.Float(80), MemoryUsage: models.Float(70)},
		{AppName: "editor", Duration: 3600000, CPUUsage: models.Float(5)},
		{AppName: "terminal", Duration: 3600000},
	}

	apps := DetectResourceIntensiveApps(activities)
	if len(apps) != 2 {
		t.Fatalf("apps = %d, want 2", len(apps))
	}

	ide := apps[0]
	if ide.AppName != "ide" {
		t.Fatalf("first app = %s, want ide", ide.AppName)
	}
	assertFloatNear(t, "ide cpu", ide.AverageCPU, 70)
	assertFloatNear(t, "ide memory", ide.AverageMemory, 60)
	assertFloatNear(t, "ide impact", ide.ImpactScore, 0.4*0.7+0.4*0.6+0.2)
	if ide.Category != models.UsageHeavy {
		t.Errorf("ide category = %s, want heavy", ide.Category)
	}
	if apps[1].Category != models.UsageLight {
		t.Errorf("editor category = %s, want light", apps[1].Category)
	}
}

func TestStartPersistsSamplesUntilStopped(t *testing.T) {
	store := &fakeMetricsStore{}
	m := NewResourceMonitor(&fakeCollector{snap: &sysinfo.Snapshot{Timestamp: time.Now(), CPUUsage: 95}}, store, nil)

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background(), 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for store.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("no samples persisted")
		case <-time.After(5 * time.Millisecond):
		}
	}

	m.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v after Stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
	if m.IsRunning() {
		t.Error("monitor still reports running")
	}
}

func TestStartRejectsBadInterval(t *testing.T) {
	m := NewResourceMonitor(nil, nil, nil)
	if err := m.Start(context.Background(), 0); err == nil {
		t.Error("zero interval accepted")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	m := NewResourceMonitor(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Start(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Start = %v, want context.Canceled", err)
	}
}
