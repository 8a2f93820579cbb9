// Package session segments the live activity stream into work sessions,
// breaks, productivity blocks and per-app focus sessions.
package session

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/actionsum/focuslens/internal/focus"
	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/productivity"
)

// Thresholds in milliseconds.
const (
	IdleThreshold           int64 = 5 * 60 * 1000
	MinSessionDuration      int64 = 10 * 60 * 1000
	BreakThreshold          int64 = 3 * 60 * 1000
	BlockDuration           int64 = 30 * 60 * 1000
	MinFocusSessionDuration int64 = 10 * 60 * 1000

	microBreakLimit int64 = 5 * 60 * 1000
	shortBreakLimit int64 = 30 * 60 * 1000
)

// ErrNoActivities is returned when a work session is built from an empty list.
var ErrNoActivities = errors.New("cannot create work session without activities")

// Boundary is a half-open index range [Start, End) of one session in a batch.
type Boundary struct {
	Start     int   `json:"start"`
	End       int   `json:"end"`
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
}

// Segmenter holds the pure segmentation rules shared by the live Manager and batch callers.
type Segmenter struct {
	focus *focus.Detector
	newID func() string
}

func NewSegmenter(detector *focus.Detector) *Segmenter {
	if detector == nil {
		detector = focus.NewDetector(nil)
	}
	return &Segmenter{
		focus: detector,
		newID: func() string { return uuid.New().String() },
	}
}

// DetectSessionBoundaries splits a chronological batch wherever the idle gap exceeds IdleThreshold.
func (s *Segmenter) DetectSessionBoundaries(activities []models.ActivityRecord) []Boundary {
	var bounds []Boundary
	if len(activities) == 0 {
		return bounds
	}

	start := 0
	for i := 1; i <= len(activities); i++ {
		if i < len(activities) && focus.Gap(activities[i-1], activities[i]) <= IdleThreshold {
			continue
		}
		bounds = append(bounds, Boundary{
			Start:     start,
			End:       i,
			StartTime: activities[start].Timestamp,
			EndTime:   activities[i-1].End(),
		})
		start = i
	}
	return bounds
}

// DetectBreaks returns every inter-activity gap longer than BreakThreshold.
func (s *Segmenter) DetectBreaks(activities []models.ActivityRecord) []models.BreakPattern {
	var breaks []models.BreakPattern
	for i := 1; i < len(activities); i++ {
		gap := focus.Gap(activities[i-1], activities[i])
		if gap <= BreakThreshold {
			continue
		}
		breaks = append(breaks, models.BreakPattern{
			StartTime: activities[i-1].End(),
			EndTime:   activities[i].Timestamp,
			Duration:  gap,
			Type:      classifyBreak(gap),
		})
	}
	return breaks
}

func classifyBreak(gap int64) models.BreakType {
	switch {
	case gap < microBreakLimit:
		return models.BreakMicro
	case gap < shortBreakLimit:
		return models.BreakShort
	default:
		return models.BreakLong
	}
}

// CreateWorkSession aggregates activities into a WorkSession without persisting it.
func (s *Segmenter) CreateWorkSession(activities []models.ActivityRecord) (*models.WorkSession, error) {
	if len(activities) == 0 {
		return nil, ErrNoActivities
	}

	first, last := activities[0], activities[len(activities)-1]

	appTime := make(map[string]int64)
	categoryTime := make(map[string]int64)
	var weighted, plain float64
	var total int64
	switches := 0

	for i, a := range activities {
		appTime[a.AppName] += a.Duration
		if a.Category != "" {
			categoryTime[a.Category] += a.Duration
		}
		w := productivity.Weight(a.ProductivityRating)
		plain += w
		weighted += w * float64(a.Duration)
		total += a.Duration
		if i > 0 && activities[i-1].AppName != a.AppName {
			switches++
		}
	}

	score := plain / float64(len(activities))
	if total > 0 {
		score = weighted / float64(total)
	}

	var breakTime int64
	for _, b := range s.DetectBreaks(activities) {
		breakTime += b.Duration
	}

	return &models.WorkSession{
		ID:                 s.newID(),
		StartTime:          first.Timestamp,
		EndTime:            last.End(),
		Duration:           last.End() - first.Timestamp,
		FocusScore:         s.focus.CalculateFocusScore(activities),
		ProductivityScore:  productivity.Clamp(score),
		ProductivityRating: productivity.RatingForScore(score),
		ContextSwitches:    switches,
		BreakDuration:      breakTime,
		DominantApp:        dominant(appTime),
		DominantCategory:   dominant(categoryTime),
		ActivityCount:      len(activities),
	}, nil
}

// ProductivityBlocks buckets a session's activities into fixed BlockDuration windows
// starting at the session start. Empty windows produce no block.
func (s *Segmenter) ProductivityBlocks(ws *models.WorkSession, activities []models.ActivityRecord) []models.ProductivityBlock {
	var blocks []models.ProductivityBlock

	for start := ws.StartTime; start < ws.EndTime; start += BlockDuration {
		end := start + BlockDuration

		var bucket []models.ActivityRecord
		for _, a := range activities {
			if a.Timestamp >= start && a.Timestamp < end {
				bucket = append(bucket, a)
			}
		}
		if len(bucket) == 0 {
			continue
		}

		appTime := make(map[string]int64)
		var active int64
		for _, a := range bucket {
			appTime[a.AppName] += a.Duration
			if !a.IsIdle {
				active += a.Duration
			}
		}

		score := s.focus.CalculateFocusScore(bucket)
		blocks = append(blocks, models.ProductivityBlock{
			ID:                 s.newID(),
			SessionID:          ws.ID,
			StartTime:          start,
			EndTime:            min(end, ws.EndTime),
			Type:               blockType(score),
			EnergyLevel:        EnergyLevel(bucket),
			QualityScore:       score * 100,
			FocusScore:         score,
			ProductivityRating: productivity.RatingForScore(score),
			ActiveTime:         active,
			DominantApp:        dominant(appTime),
		})
	}

	return blocks
}

func blockType(score float64) models.BlockType {
	switch {
	case score >= 0.7:
		return models.BlockDeepFocus
	case score >= 0.4:
		return models.BlockShallowWork
	default:
		return models.BlockDistraction
	}
}

// EnergyLevel rates input and CPU intensity over a set of activities.
func EnergyLevel(activities []models.ActivityRecord) models.EnergyLevel {
	if len(activities) == 0 {
		return models.EnergyLow
	}

	var cpu float64
	var cpuSamples, keys, clicks int
	for _, a := range activities {
		if a.CPUUsage != nil {
			cpu += *a.CPUUsage
			cpuSamples++
		}
		keys += a.Keystrokes
		clicks += a.MouseClicks
	}

	n := float64(len(activities))
	avgCPU := 0.0
	if cpuSamples > 0 {
		avgCPU = cpu / float64(cpuSamples)
	}

	intensity := avgCPU/100 + min(float64(keys)/n, 100)/100 + min(float64(clicks)/n, 50)/50

	switch {
	case intensity >= 2:
		return models.EnergyHigh
	case intensity >= 1:
		return models.EnergyMedium
	default:
		return models.EnergyLow
	}
}

// FocusSessions groups consecutive same-app activities of a session into runs of at least
// MinFocusSessionDuration. Idle gaps do not split a run.
func (s *Segmenter) FocusSessions(ws *models.WorkSession, activities []models.ActivityRecord) []models.FocusSession {
	var sessions []models.FocusSession

	start := 0
	for i := 1; i <= len(activities); i++ {
		if i < len(activities) && activities[i].AppName == activities[start].AppName {
			continue
		}

		run := activities[start:i]
		start = i

		var duration int64
		var keys, clicks, interruptions int
		for j, a := range run {
			duration += a.Duration
			keys += a.Keystrokes
			clicks += a.MouseClicks
			if j > 0 && focus.Gap(run[j-1], a) > focus.InterruptionThreshold {
				interruptions++
			}
		}
		if duration < MinFocusSessionDuration {
			continue
		}

		sessions = append(sessions, models.FocusSession{
			ID:            s.newID(),
			SessionID:     ws.ID,
			AppName:       run[0].AppName,
			StartTime:     run[0].Timestamp,
			EndTime:       run[len(run)-1].End(),
			Duration:      duration,
			Interruptions: interruptions,
			FocusScore:    productivity.Clamp(1 - 0.1*float64(interruptions)),
			Keystrokes:    keys,
			MouseClicks:   clicks,
		})
	}

	return sessions
}

// dominant returns the key with the largest total; ties go to the alphabetically first key.
func dominant(totals map[string]int64) string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := ""
	var bestTotal int64 = -1
	for _, k := range keys {
		if totals[k] > bestTotal {
			best, bestTotal = k, totals[k]
		}
	}
	return best
}
