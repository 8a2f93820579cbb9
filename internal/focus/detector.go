// Package focus derives focus scores, context switches and interruption patterns
// from a chronological list of activities.
package focus

import (
	"math"
	"sort"
	"time"

	"github.com/actionsum/focuslens/internal/models"
)

// Thresholds in milliseconds.
const (
	FocusThreshold          int64 = 5 * 60 * 1000
	QuickSwitchThreshold    int64 = 10 * 1000
	ExtendedSwitchThreshold int64 = 3 * 60 * 1000
	InterruptionThreshold   int64 = 30 * 1000

	quickSwitchPenalty    = 0.02
	maxQuickSwitchPenalty = 0.5
	consistencyWeight     = 0.1
	maxDepthBonus         = 0.2

	defaultHour = 9
	msPerHour   = float64(time.Hour / time.Millisecond)
)

// Detector is stateless apart from the location used for hour bucketing.
// Activities are expected in timestamp order.
type Detector struct {
	loc *time.Location
}

func NewDetector(loc *time.Location) *Detector {
	if loc == nil {
		loc = time.Local
	}
	return &Detector{loc: loc}
}

// Hour returns the wall-clock hour of a millisecond timestamp.
func (d *Detector) Hour(ts int64) int {
	return time.UnixMilli(ts).In(d.loc).Hour()
}

// Gap returns the idle time between the end of prev and the start of next, floored at zero.
func Gap(prev, next models.ActivityRecord) int64 {
	gap := next.Timestamp - prev.End()
	if gap < 0 {
		return 0
	}
	return gap
}

// DetectContextSwitches emits one switch per adjacent pair with different app names.
func (d *Detector) DetectContextSwitches(activities []models.ActivityRecord) []models.ContextSwitch {
	var switches []models.ContextSwitch

	for i := 1; i < len(activities); i++ {
		prev, cur := activities[i-1], activities[i]
		if prev.AppName == cur.AppName {
			continue
		}

		duration := cur.Timestamp - prev.Timestamp
		if duration < 0 {
			duration = 0
		}

		switches = append(switches, models.ContextSwitch{
			FromApp:    prev.AppName,
			ToApp:      cur.AppName,
			Timestamp:  cur.Timestamp,
			Duration:   duration,
			SwitchType: classifySwitch(duration),
			Impact:     switchImpact(duration, prev),
			Index:      i,
		})
	}

	return switches
}

func classifySwitch(duration int64) models.SwitchType {
	switch {
	case duration < QuickSwitchThreshold:
		return models.SwitchQuick
	case duration >= ExtendedSwitchThreshold:
		return models.SwitchExtended
	default:
		return models.SwitchNormal
	}
}

func switchImpact(duration int64, prev models.ActivityRecord) models.Impact {
	switch {
	case duration < QuickSwitchThreshold:
		return models.ImpactHigh
	case prev.Duration > FocusThreshold:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}

// IdentifyFocusSessions groups runs on one app that last at least FocusThreshold.
// A run ends when the app changes or the idle gap exceeds ExtendedSwitchThreshold.
func (d *Detector) IdentifyFocusSessions(activities []models.ActivityRecord) []models.FocusSession {
	var sessions []models.FocusSession
	if len(activities) == 0 {
		return sessions
	}

	start := 0
	for i := 1; i <= len(activities); i++ {
		if i < len(activities) &&
			activities[i].AppName == activities[start].AppName &&
			Gap(activities[i-1], activities[i]) <= ExtendedSwitchThreshold {
			continue
		}
		if s, ok := buildFocusSession(activities[start:i]); ok {
			sessions = append(sessions, s)
		}
		start = i
	}

	return sessions
}

func buildFocusSession(run []models.ActivityRecord) (models.FocusSession, bool) {
	var total int64
	var keystrokes, clicks, interruptions int
	for i, a := range run {
		total += a.Duration
		keystrokes += a.Keystrokes
		clicks += a.MouseClicks
		if i > 0 {
			gap := Gap(run[i-1], a)
			if gap > InterruptionThreshold && gap < ExtendedSwitchThreshold {
				interruptions++
			}
		}
	}
	if total < FocusThreshold {
		return models.FocusSession{}, false
	}

	return models.FocusSession{
		AppName:       run[0].AppName,
		StartTime:     run[0].Timestamp,
		EndTime:       run[len(run)-1].End(),
		Duration:      total,
		Interruptions: interruptions,
		FocusScore:    clamp(1 - 0.1*float64(interruptions)),
		Keystrokes:    keystrokes,
		MouseClicks:   clicks,
	}, true
}

// CalculateFocusScore combines focused-time ratio, quick-switch penalty,
// duration consistency and session depth into a score in [0,1].
func (d *Detector) CalculateFocusScore(activities []models.ActivityRecord) float64 {
	if len(activities) == 0 {
		return 0
	}

	var total int64
	durations := make([]float64, len(activities))
	for i, a := range activities {
		total += a.Duration
		durations[i] = float64(a.Duration)
	}
	if total <= 0 {
		return 0
	}

	sessions := d.IdentifyFocusSessions(activities)
	var focused int64
	depth := 0.0
	for _, s := range sessions {
		focused += s.Duration
		switch {
		case s.Duration > 60*60*1000:
			depth += 0.10
		case s.Duration > 30*60*1000:
			depth += 0.05
		}
	}
	depth = math.Min(depth, maxDepthBonus)

	quick := 0
	for _, sw := range d.DetectContextSwitches(activities) {
		if sw.SwitchType == models.SwitchQuick {
			quick++
		}
	}

	score := float64(focused) / float64(total)
	score -= math.Min(maxQuickSwitchPenalty, float64(quick)*quickSwitchPenalty)

	if len(activities) >= 3 {
		score += clamp(1-CoefficientOfVariation(durations)) * consistencyWeight
	}
	score += depth

	return clamp(score)
}

// AnalyzeFocusPatterns summarises when and how well the user focuses.
func (d *Detector) AnalyzeFocusPatterns(activities []models.ActivityRecord) models.FocusPatterns {
	patterns := models.FocusPatterns{
		PeakFocusHour:   defaultHour,
		LowestFocusHour: defaultHour,
	}
	if len(activities) == 0 {
		return patterns
	}

	sessions := d.IdentifyFocusSessions(activities)
	switches := d.DetectContextSwitches(activities)

	spanHours := float64(activities[len(activities)-1].End()-activities[0].Timestamp) / msPerHour

	if len(sessions) > 0 {
		durations := make([]float64, len(sessions))
		var sum float64
		for i, s := range sessions {
			durations[i] = float64(s.Duration)
			sum += durations[i]
		}
		patterns.AverageSessionDuration = sum / float64(len(sessions))
		patterns.FocusConsistency = clamp(1 - CoefficientOfVariation(durations))
		if spanHours > 0 {
			patterns.SessionsPerHour = float64(len(sessions)) / spanHours
		}
	}

	if spanHours > 0 {
		patterns.InterruptionFrequency = float64(len(switches)) / spanHours
	}

	var hourly [24]float64
	var seen [24]bool
	for _, a := range activities {
		h := d.Hour(a.Timestamp)
		hourly[h] += math.Min(1, float64(a.Duration)/float64(FocusThreshold))
		seen[h] = true
	}
	peak, lowest := -1, -1
	for h := 0; h < 24; h++ {
		if !seen[h] {
			continue
		}
		if peak < 0 || hourly[h] > hourly[peak] {
			peak = h
		}
		if lowest < 0 || hourly[h] < hourly[lowest] {
			lowest = h
		}
	}
	if peak >= 0 {
		patterns.PeakFocusHour = peak
		patterns.LowestFocusHour = lowest
	}

	var recovery float64
	var recoveries int
	for _, sw := range switches {
		if activities[sw.Index].Duration > FocusThreshold {
			recovery += float64(sw.Duration)
			recoveries++
		}
	}
	if recoveries > 0 {
		patterns.AverageRecoveryTime = recovery / float64(recoveries)
	}

	return patterns
}

// GetInterruptionAnalysis looks at switches shorter than InterruptionThreshold.
func (d *Detector) GetInterruptionAnalysis(activities []models.ActivityRecord) models.InterruptionAnalysis {
	var analysis models.InterruptionAnalysis

	type recoveryStats struct {
		interruptions int
		successes     int
		recoveryTime  int64
		recoveredWith int
		apps          map[string]int
	}

	counts := make(map[string]int)
	perApp := make(map[string]*recoveryStats)
	var totalDuration int64

	for _, sw := range d.DetectContextSwitches(activities) {
		if sw.Duration >= InterruptionThreshold {
			continue
		}

		analysis.TotalInterruptions++
		totalDuration += sw.Duration
		counts[sw.ToApp]++
		analysis.HourlyDistribution[d.Hour(sw.Timestamp)]++

		stats, ok := perApp[sw.ToApp]
		if !ok {
			stats = &recoveryStats{apps: make(map[string]int)}
			perApp[sw.ToApp] = stats
		}
		stats.interruptions++

		next := sw.Index + 1
		if next >= len(activities) {
			continue
		}
		following := activities[next]
		stats.recoveryTime += following.Timestamp - activities[sw.Index].Timestamp
		stats.recoveredWith++
		stats.apps[following.AppName]++
		if following.Duration >= FocusThreshold {
			stats.successes++
		}
	}

	if analysis.TotalInterruptions == 0 {
		return analysis
	}

	analysis.AverageDuration = float64(totalDuration) / float64(analysis.TotalInterruptions)
	analysis.TopInterrupters = topCounts(counts, 5)

	for _, ac := range topCounts(counts, len(counts)) {
		stats := perApp[ac.AppName]
		pattern := models.RecoveryPattern{
			AppName:       ac.AppName,
			Interruptions: stats.interruptions,
			SuccessRate:   float64(stats.successes) / float64(stats.interruptions),
			RecoveryApps:  []string{},
		}
		if stats.recoveredWith > 0 {
			pattern.AverageRecoveryTime = float64(stats.recoveryTime) / float64(stats.recoveredWith)
		}
		for _, app := range topCounts(stats.apps, 3) {
			pattern.RecoveryApps = append(pattern.RecoveryApps, app.AppName)
		}
		analysis.RecoveryPatterns = append(analysis.RecoveryPatterns, pattern)
	}

	return analysis
}

// topCounts orders by count descending, then name, and keeps at most n entries.
func topCounts(counts map[string]int, n int) []models.AppCount {
	out := make([]models.AppCount, 0, len(counts))
	for app, c := range counts {
		out = append(out, models.AppCount{AppName: app, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].AppName < out[j].AppName
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// CoefficientOfVariation is the population standard deviation over the mean.
// An empty or single-element list yields 0; a zero mean yields 1.
func CoefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 1
	}

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return math.Sqrt(variance) / mean
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
