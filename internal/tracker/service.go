// Package tracker polls the window detector and coalesces consecutive samples into activity records.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/actionsum/focuslens/internal/config"
	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/pkg/window"
)

const (
	// MaxRecordDuration caps a single record so long stretches still reach the engine regularly.
	// It must stay well above the 5 minute focus threshold or no live record could ever exceed it.
	MaxRecordDuration = 30 * time.Minute

	// SwitchWindow is how far back a record's ContextSwitches counts app changes.
	SwitchWindow = 10 * time.Minute
)

// Processor receives finished activity records.
type Processor interface {
	Process(ctx context.Context, activity models.ActivityRecord) (models.ActivityRecord, *models.WorkSession)
	Flush(ctx context.Context) *models.WorkSession
}

// ErrorStore persists capture failures.
type ErrorStore interface {
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// CategoryLearner assigns a suggested category to apps seen for the first time.
type CategoryLearner interface {
	Adopt(ctx context.Context, appName string) (bool, error)
}

// UsageSampler reports per-process CPU and memory percentages.
type UsageSampler interface {
	ProcessUsage(pid int) (cpu, mem float64, err error)
}

type Option func(*Service)

func WithCategories(c CategoryLearner) Option {
	return func(s *Service) { s.categories = c }
}

func WithUsage(u UsageSampler) Option {
	return func(s *Service) { s.usage = u }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	config     *config.Config
	engine     Processor
	errors     ErrorStore
	detector   window.Detector
	categories CategoryLearner
	usage      UsageSampler
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}

	pending    *models.ActivityRecord
	pendingPID int
	lastSeen   time.Time

	lastApp  string
	switches []int64
}

func NewService(cfg *config.Config, engine Processor, errors ErrorStore, detector window.Detector, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		config:   cfg,
		engine:   engine,
		errors:   errors,
		detector: detector,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start samples every poll interval until ctx is cancelled or Stop is called.
// On exit the open record and work session are flushed.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	s.running = true
	stop := make(chan struct{})
	s.stopChan = stop
	s.mu.Unlock()

	defer func() {
		s.finish(context.WithoutCancel(ctx))
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	interval := s.config.Tracker.PollInterval
	s.logger.Info("starting tracker",
		slog.Duration("poll_interval", interval),
		slog.String("display_server", s.detector.GetDisplayServer()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tracker stopped by context")
			return ctx.Err()

		case <-stop:
			s.logger.Info("tracker stopped")
			return nil

		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.stopChan != nil {
		close(s.stopChan)
		s.stopChan = nil
	}
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pending returns a copy of the record currently being extended.
func (s *Service) Pending() *models.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

func (s *Service) tick(ctx context.Context) {
	if err := s.trackOnce(ctx); err != nil {
		s.storeError(err)
	}
}

func (s *Service) trackOnce(ctx context.Context) error {
	now := s.now()

	idleInfo, err := s.detector.GetIdleInfo()
	if err != nil {
		return fmt.Errorf("failed to get idle info: %w", err)
	}

	if idleInfo.Away() {
		s.logger.Debug("skipping sample",
			slog.Bool("idle", idleInfo.IsIdle),
			slog.Bool("locked", idleInfo.IsLocked))
		s.flush(ctx, now)
		return nil
	}

	info, err := s.detector.GetFocusedWindow()
	if err != nil {
		return fmt.Errorf("failed to get focused window: %w", err)
	}
	if info == nil || info.AppName == "" {
		return fmt.Errorf("no valid window information available")
	}

	s.observe(ctx, info, now)
	return nil
}

// observe extends the pending record when the same window is still focused, otherwise
// hands the pending record to the engine and starts a new one.
func (s *Service) observe(ctx context.Context, info *window.WindowInfo, now time.Time) {
	s.mu.Lock()
	p := s.pending
	same := p != nil &&
		p.AppName == info.AppName &&
		p.WindowTitle == info.WindowTitle &&
		now.Sub(time.UnixMilli(p.Timestamp)) < MaxRecordDuration
	if same {
		s.lastSeen = now
		p.Duration = now.UnixMilli() - p.Timestamp
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.flush(ctx, now)

	s.mu.Lock()
	if s.lastApp != "" && s.lastApp != info.AppName {
		s.switches = append(s.switches, now.UnixMilli())
		s.pruneSwitchesLocked(now.UnixMilli())
	}
	s.lastApp = info.AppName
	s.pending = &models.ActivityRecord{
		Timestamp:   now.UnixMilli(),
		AppName:     info.AppName,
		WindowTitle: info.WindowTitle,
	}
	s.pendingPID = info.PID
	s.lastSeen = now
	s.mu.Unlock()

	if s.usage != nil && info.PID > 0 {
		// Primes the per-process CPU counter; the reading is taken at flush.
		_, _, _ = s.usage.ProcessUsage(info.PID)
	}

	if s.categories != nil {
		adopted, err := s.categories.Adopt(ctx, info.AppName)
		if err != nil {
			s.logger.Warn("failed to store suggested category", slog.String("app", info.AppName), slog.Any("error", err))
		} else if adopted {
			s.logger.Info("categorised new app", slog.String("app", info.AppName))
		}
	}
}

// flush closes the pending record at the last time its window was seen plus one poll interval.
func (s *Service) flush(ctx context.Context, now time.Time) {
	s.mu.Lock()
	p := s.pending
	pid := s.pendingPID
	lastSeen := s.lastSeen
	s.pending = nil
	s.pendingPID = 0
	s.pruneSwitchesLocked(now.UnixMilli())
	switches := len(s.switches)
	s.mu.Unlock()

	if p == nil {
		return
	}

	end := lastSeen.Add(s.config.Tracker.PollInterval)
	if end.After(now) {
		end = now
	}
	p.Duration = max(end.UnixMilli()-p.Timestamp, 0)
	p.ContextSwitches = &switches

	if s.usage != nil && pid > 0 {
		if cpu, mem, err := s.usage.ProcessUsage(pid); err == nil {
			p.CPUUsage = &cpu
			p.MemoryUsage = &mem
		}
	}

	enriched, closed := s.engine.Process(ctx, *p)
	s.logger.Debug("recorded activity",
		slog.String("app", enriched.AppName),
		slog.Int64("duration_ms", enriched.Duration),
		slog.String("rating", string(enriched.ProductivityRating)))
	if closed != nil {
		s.logger.Info("work session ended by inactivity gap", slog.String("session_id", closed.ID))
	}
}

// SwitchCount returns the number of app changes within the last SwitchWindow.
func (s *Service) SwitchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneSwitchesLocked(s.now().UnixMilli())
	return len(s.switches)
}

func (s *Service) pruneSwitchesLocked(nowMs int64) {
	cutoff := nowMs - SwitchWindow.Milliseconds()
	idx := 0
	for idx < len(s.switches) && s.switches[idx] < cutoff {
		idx++
	}
	if idx > 0 {
		s.switches = s.switches[idx:]
	}
}

func (s *Service) finish(ctx context.Context) {
	s.flush(ctx, s.now())
	if ws := s.engine.Flush(ctx); ws != nil {
		s.logger.Info("flushed open work session", slog.String("session_id", ws.ID))
	}
}

func (s *Service) storeError(err error) {
	now := s.now()
	errorLog := &models.ErrorLog{
		Timestamp: now,
		Source:    "tracker",
		ErrorMsg:  err.Error(),
	}

	if s.errors == nil {
		s.logger.Warn("capture failed", slog.Any("error", err))
		return
	}
	if dbErr := s.errors.CreateErrorLog(errorLog); dbErr != nil {
		s.logger.Error("failed to store error in database", slog.Any("error", dbErr), slog.Any("original_error", err))
	} else {
		s.logger.Warn("capture failed, logged to database", slog.Any("error", err))
	}
}
