package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/actionsum/focuslens/internal/config"
	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/pkg/window"
)

type mockDetector struct {
	window    *window.WindowInfo
	idle      *window.IdleInfo
	windowErr error
}

func (m *mockDetector) GetFocusedWindow() (*window.WindowInfo, error) {
	return m.window, m.windowErr
}

func (m *mockDetector) GetIdleInfo() (*window.IdleInfo, error) {
	if m.idle == nil {
		return &window.IdleInfo{}, nil
	}
	return m.idle, nil
}

func (m *mockDetector) IsAvailable() bool        { return true }
func (m *mockDetector) GetDisplayServer() string { return "x11" }
func (m *mockDetector) Close() error             { return nil }

type fakeEngine struct {
	mu      sync.Mutex
	records []models.ActivityRecord
	flushes int
}

func (f *fakeEngine) Process(ctx context.Context, a models.ActivityRecord) (models.ActivityRecord, *models.WorkSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, a)
	return a, nil
}

func (f *fakeEngine) Flush(ctx context.Context) *models.WorkSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

type fakeErrors struct {
	logs []models.ErrorLog
}

func (f *fakeErrors) CreateErrorLog(e *models.ErrorLog) error {
	f.logs = append(f.logs, *e)
	return nil
}

type fakeLearner struct {
	apps []string
}

func (f *fakeLearner) Adopt(ctx context.Context, app string) (bool, error) {
	f.apps = append(f.apps, app)
	return true, nil
}

type fakeUsage struct {
	calls int
}

func (f *fakeUsage) ProcessUsage(pid int) (float64, float64, error) {
	f.calls++
	return 12.5, 3, nil
}

type harness struct {
	svc      *Service
	detector *mockDetector
	engine   *fakeEngine
	errors   *fakeErrors
	now      time.Time
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Tracker.PollInterval = time.Second

	h := &harness{
		detector: &mockDetector{},
		engine:   &fakeEngine{},
		errors:   &fakeErrors{},
		now:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	opts = append(opts, WithClock(func() time.Time { return h.now }))
	h.svc = NewService(cfg, h.engine, h.errors, h.detector, nil, opts...)
	return h
}

func (h *harness) sample(t *testing.T, app, title string) {
	t.Helper()
	h.detector.window = &window.WindowInfo{AppName: app, WindowTitle: title, PID: 42}
	h.detector.idle = nil
	if err := h.svc.trackOnce(context.Background()); err != nil {
		t.Fatalf("trackOnce() error = %v", err)
	}
	h.now = h.now.Add(time.Second)
}

func (h *harness) sampleIdle(t *testing.T) {
	t.Helper()
	h.detector.idle = &window.IdleInfo{IsIdle: true, IdleTime: 10 * time.Minute}
	if err := h.svc.trackOnce(context.Background()); err != nil {
		t.Fatalf("trackOnce() error = %v", err)
	}
	h.now = h.now.Add(time.Second)
}

func TestCoalescesSamples(t *testing.T) {
	h := newHarness(t)
	start := h.now.UnixMilli()

	h.sample(t, "code", "main.go")
	h.sample(t, "code", "main.go")
	h.sample(t, "code", "main.go")
	h.sample(t, "firefox", "docs")
	h.sampleIdle(t)

	if len(h.engine.records) != 2 {
		t.Fatalf("records = %d, want 2", len(h.engine.records))
	}

	code := h.engine.records[0]
	if code.AppName != "code" || code.Timestamp != start || code.Duration != 3000 {
		t.Errorf("first record = %s@%d for %dms, want code@%d for 3000ms", code.AppName, code.Timestamp, code.Duration, start)
	}

	ff := h.engine.records[1]
	if ff.AppName != "firefox" || ff.Timestamp != start+3000 || ff.Duration != 1000 {
		t.Errorf("second record = %s@%d for %dms, want firefox@%d for 1000ms", ff.AppName, ff.Timestamp, ff.Duration, start+3000)
	}

	if h.svc.Pending() != nil {
		t.Error("idle sample should close the pending record")
	}
}

func TestTitleChangeStartsNewRecord(t *testing.T) {
	h := newHarness(t)
	h.sample(t, "firefox", "Go docs")
	h.sample(t, "firefox", "YouTube")

	if len(h.engine.records) != 1 || h.engine.records[0].WindowTitle != "Go docs" {
		t.Fatalf("records = %+v, want the first title flushed", h.engine.records)
	}
	if p := h.svc.Pending(); p == nil || p.WindowTitle != "YouTube" {
		t.Errorf("pending = %+v, want YouTube", p)
	}
}

func TestMaxRecordDuration(t *testing.T) {
	h := newHarness(t)
	n := int(MaxRecordDuration/time.Second) + 1
	for i := 0; i < n; i++ {
		h.sample(t, "code", "main.go")
	}

	if len(h.engine.records) != 1 {
		t.Fatalf("records = %d, want 1 split record", len(h.engine.records))
	}
	if got := h.engine.records[0].Duration; got != MaxRecordDuration.Milliseconds() {
		t.Errorf("split duration = %d, want %d", got, MaxRecordDuration.Milliseconds())
	}
}

func TestLongRunKeepsOneRecord(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 20*60; i++ {
		h.sample(t, "code", "main.go")
	}
	h.svc.flush(context.Background(), h.now)

	if len(h.engine.records) != 1 {
		t.Fatalf("records = %d, want one 20 minute record", len(h.engine.records))
	}
	if got := h.engine.records[0].Duration; got <= 5*60*1000 {
		t.Errorf("duration = %d, want more than the 5 minute focus threshold", got)
	}
}

func switchCounts(t *testing.T, records []models.ActivityRecord) []int {
	t.Helper()
	counts := make([]int, len(records))
	for i, r := range records {
		if r.ContextSwitches == nil {
			t.Fatalf("record %d (%s) has no context switch count", i, r.AppName)
		}
		counts[i] = *r.ContextSwitches
	}
	return counts
}

func TestContextSwitches(t *testing.T) {
	h := newHarness(t)

	h.sample(t, "code", "main.go")
	h.sample(t, "firefox", "docs")
	h.sample(t, "firefox", "issues")
	h.sample(t, "code", "main.go")
	h.sample(t, "firefox", "docs")
	h.sampleIdle(t)

	got := switchCounts(t, h.engine.records)
	want := []int{0, 1, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("counts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("counts = %v, want %v", got, want)
			break
		}
	}
	if h.svc.SwitchCount() != 3 {
		t.Errorf("SwitchCount() = %d, want 3", h.svc.SwitchCount())
	}
}

func TestContextSwitchesRollOff(t *testing.T) {
	h := newHarness(t)

	h.sample(t, "code", "main.go")
	h.sample(t, "firefox", "docs")
	h.sample(t, "code", "main.go")
	h.sampleIdle(t)

	h.now = h.now.Add(SwitchWindow + time.Minute)
	h.sample(t, "firefox", "docs")
	h.sample(t, "code", "main.go")

	counts := switchCounts(t, h.engine.records)
	if last := counts[len(counts)-1]; last != 1 {
		t.Errorf("count after the window = %d, want only the switch into firefox", last)
	}
}

func TestUsageAndCategories(t *testing.T) {
	usage := &fakeUsage{}
	learner := &fakeLearner{}
	h := newHarness(t, WithUsage(usage), WithCategories(learner))

	h.sample(t, "Spotify", "Daily Mix")
	h.sample(t, "code", "main.go")

	if len(h.engine.records) != 1 {
		t.Fatalf("records = %d, want 1", len(h.engine.records))
	}
	rec := h.engine.records[0]
	if rec.CPUUsage == nil || *rec.CPUUsage != 12.5 || rec.MemoryUsage == nil || *rec.MemoryUsage != 3 {
		t.Errorf("usage = %v/%v, want 12.5/3", rec.CPUUsage, rec.MemoryUsage)
	}
	// prime + read for Spotify, prime for code
	if usage.calls != 3 {
		t.Errorf("usage calls = %d, want 3", usage.calls)
	}
	if len(learner.apps) != 2 || learner.apps[0] != "Spotify" || learner.apps[1] != "code" {
		t.Errorf("adopted apps = %v, want [Spotify code]", learner.apps)
	}
}

func TestStoreErrorOnDetectorFailure(t *testing.T) {
	h := newHarness(t)
	h.detector.windowErr = errors.New("no display")

	h.svc.tick(context.Background())

	if len(h.errors.logs) != 1 {
		t.Fatalf("error logs = %d, want 1", len(h.errors.logs))
	}
	if h.errors.logs[0].Source != "tracker" {
		t.Errorf("source = %q, want tracker", h.errors.logs[0].Source)
	}
	if len(h.engine.records) != 0 {
		t.Error("failed sample should not produce a record")
	}
}

func TestEmptyAppNameIsAnError(t *testing.T) {
	h := newHarness(t)
	h.detector.window = &window.WindowInfo{}
	if err := h.svc.trackOnce(context.Background()); err == nil {
		t.Error("expected error for empty app name")
	}
}

func TestStartStop(t *testing.T) {
	h := newHarness(t)
	h.svc.config.Tracker.PollInterval = 10 * time.Millisecond
	h.detector.window = &window.WindowInfo{AppName: "code", WindowTitle: "main.go"}

	done := make(chan error, 1)
	go func() { done <- h.svc.Start(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !h.svc.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("tracker did not start")
		}
		time.Sleep(time.Millisecond)
	}

	if err := h.svc.Start(context.Background()); err == nil {
		t.Error("second Start() should fail while running")
	}

	h.svc.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v, want nil after Stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tracker did not stop")
	}

	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	if h.engine.flushes != 1 {
		t.Errorf("engine flushes = %d, want 1", h.engine.flushes)
	}
	if len(h.engine.records) != 1 {
		t.Errorf("records = %d, want the pending record flushed on stop", len(h.engine.records))
	}
	if h.svc.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}
