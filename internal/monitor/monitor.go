// Package monitor samples system resources and relates them to productivity.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/ports"
	"github.com/actionsum/focuslens/pkg/sysinfo"
)

const (
	cpuAlertThreshold    = 80.0
	memoryAlertThreshold = 85.0

	efficientDuration int64 = 5 * 60 * 1000
	hoursNormalizer         = 8.0
)

// MetricsCollector supplies raw system samples.
type MetricsCollector interface {
	Collect() (*sysinfo.Snapshot, error)
}

// ResourceMonitor correlates system load with activities and optionally polls
// and persists samples in the background.
type ResourceMonitor struct {
	collector MetricsCollector
	store     ports.MetricsStore
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

func NewResourceMonitor(collector MetricsCollector, store ports.MetricsStore, logger *slog.Logger) *ResourceMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceMonitor{
		collector: collector,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// GetSystemMetrics never fails: an unavailable collector yields zeroed metrics stamped now.
func (m *ResourceMonitor) GetSystemMetrics(ctx context.Context) models.SystemMetrics {
	if m.collector == nil {
		return models.SystemMetrics{Timestamp: m.now().UnixMilli()}
	}

	snap, err := m.collector.Collect()
	if err != nil {
		m.logger.Warn("system metrics unavailable", slog.Any("error", err))
		return models.SystemMetrics{Timestamp: m.now().UnixMilli()}
	}

	return models.SystemMetrics{
		Timestamp:     snap.Timestamp.UnixMilli(),
		CPUUsage:      snap.CPUUsage,
		MemoryUsage:   snap.MemoryUsage,
		DiskUsage:     snap.DiskUsage,
		NetworkRxRate: snap.NetworkRxRate,
		NetworkTxRate: snap.NetworkTxRate,
		LoadAverage:   snap.LoadAverage,
	}
}

// CorrelateResourcesWithProductivity rates how much the machine state helped or hurt an activity.
func CorrelateResourcesWithProductivity(activity models.ActivityRecord, metrics models.SystemMetrics) models.ResourceCorrelation {
	cpu := metrics.CPUUsage
	if activity.CPUUsage != nil {
		cpu = *activity.CPUUsage
	}
	memory := metrics.MemoryUsage

	corr := models.ResourceCorrelation{
		MemoryImpact:     memoryImpact(memory),
		CPUImpact:        cpuImpact(cpu),
		PerformanceScore: 1.0,
	}

	switch {
	case memory > 80:
		corr.PerformanceScore -= 0.3
		corr.Recommendations = append(corr.Recommendations, "Memory usage is very high; close unused applications")
	case memory > 60:
		corr.PerformanceScore -= 0.1
	}

	switch {
	case cpu > 80:
		corr.PerformanceScore -= 0.3
		corr.Recommendations = append(corr.Recommendations, fmt.Sprintf("%s is using a lot of CPU; check for background work", activity.AppName))
	case cpu > 60:
		corr.PerformanceScore -= 0.1
	}

	if metrics.DiskUsage > 90 {
		corr.PerformanceScore -= 0.2
		corr.Recommendations = append(corr.Recommendations, "Disk is almost full; free some space")
	}

	if activity.Duration > efficientDuration && cpu < 50 && memory < 60 {
		corr.PerformanceScore += 0.1
	}

	corr.PerformanceScore = clamp(corr.PerformanceScore)
	return corr
}

func memoryImpact(pct float64) models.ImpactLevel {
	switch {
	case pct < 50:
		return models.ImpactLevelLow
	case pct < 80:
		return models.ImpactLevelMedium
	default:
		return models.ImpactLevelHigh
	}
}

func cpuImpact(pct float64) models.ImpactLevel {
	switch {
	case pct < 30:
		return models.ImpactLevelLow
	case pct < 70:
		return models.ImpactLevelMedium
	default:
		return models.ImpactLevelHigh
	}
}

// DetectResourceIntensiveApps ranks apps by their averaged resource footprint.
// Apps that never reported CPU or memory are left out.
func DetectResourceIntensiveApps(activities []models.ActivityRecord) []models.ResourceIntensiveApp {
	type agg struct {
		cpu, mem             float64
		cpuSamples, mSamples int
		duration             int64
	}

	byApp := make(map[string]*agg)
	for _, a := range activities {
		s, ok := byApp[a.AppName]
		if !ok {
			s = &agg{}
			byApp[a.AppName] = s
		}
		s.duration += a.Duration
		if a.CPUUsage != nil {
			s.cpu += *a.CPUUsage
			s.cpuSamples++
		}
		if a.MemoryUsage != nil {
			s.mem += *a.MemoryUsage
			s.mSamples++
		}
	}

	apps := make([]models.ResourceIntensiveApp, 0, len(byApp))
	for name, s := range byApp {
		if s.cpuSamples == 0 && s.mSamples == 0 {
			continue
		}

		app := models.ResourceIntensiveApp{AppName: name, TotalDuration: s.duration}
		if s.cpuSamples > 0 {
			app.AverageCPU = s.cpu / float64(s.cpuSamples)
		}
		if s.mSamples > 0 {
			app.AverageMemory = s.mem / float64(s.mSamples)
		}

		hours := float64(s.duration) / float64(time.Hour/time.Millisecond)
		app.ImpactScore = 0.4*app.AverageCPU/100 + 0.4*app.AverageMemory/100 + 0.2*min(1, hours/hoursNormalizer)
		app.Category = usageCategory((app.AverageCPU + app.AverageMemory) / 2)

		apps = append(apps, app)
	}

	sort.Slice(apps, func(i, j int) bool {
		if apps[i].ImpactScore != apps[j].ImpactScore {
			return apps[i].ImpactScore > apps[j].ImpactScore
		}
		return apps[i].AppName < apps[j].AppName
	})

	return apps
}

func usageCategory(avg float64) models.UsageCategory {
	switch {
	case avg < 25:
		return models.UsageLight
	case avg < 50:
		return models.UsageModerate
	case avg < 75:
		return models.UsageHeavy
	default:
		return models.UsageExtreme
	}
}

// Start polls system metrics every interval and persists them until ctx is
// cancelled or Stop is called.
func (m *ResourceMonitor) Start(ctx context.Context, interval time.Duration) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("resource monitor is already running")
	}
	if interval <= 0 {
		m.mu.Unlock()
		return fmt.Errorf("monitor interval must be positive, got %v", interval)
	}
	m.running = true
	stop := make(chan struct{})
	m.stopChan = stop
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.logger.Info("starting resource monitor", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("resource monitor stopped by context")
			return ctx.Err()

		case <-stop:
			m.logger.Info("resource monitor stopped")
			return nil

		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *ResourceMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running && m.stopChan != nil {
		close(m.stopChan)
		m.stopChan = nil
	}
}

func (m *ResourceMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *ResourceMonitor) sample(ctx context.Context) {
	metrics := m.GetSystemMetrics(ctx)

	if metrics.CPUUsage > cpuAlertThreshold {
		m.logger.Warn("high CPU usage", slog.Float64("cpu", metrics.CPUUsage))
	}
	if metrics.MemoryUsage > memoryAlertThreshold {
		m.logger.Warn("high memory usage", slog.Float64("memory", metrics.MemoryUsage))
	}

	if m.store == nil {
		return
	}
	if err := m.store.SaveSystemMetrics(ctx, &metrics); err != nil {
		m.logger.Warn("failed to save system metrics", slog.Any("error", err))
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
