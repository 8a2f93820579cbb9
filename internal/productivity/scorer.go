// Package productivity scores individual activities against the app category table.
package productivity

import (
	"context"
	"log/slog"

	"github.com/actionsum/focuslens/internal/models"
)

const (
	// LongActivityThreshold is the duration (ms) above which an activity earns the duration bonus.
	LongActivityThreshold int64 = 5 * 60 * 1000

	activeCPUMin       = 10.0
	activeCPUMax       = 80.0
	lowSwitchThreshold = 5
	bonus              = 0.1

	ProductiveThreshold  = 0.7
	DistractingThreshold = 0.3
)

// Weight returns the base score for a rating. Unknown or empty ratings are neutral.
func Weight(r models.Rating) float64 {
	switch r {
	case models.RatingProductive:
		return 1.0
	case models.RatingDistracting:
		return 0.0
	default:
		return 0.5
	}
}

// RatingForScore buckets a score into a rating.
func RatingForScore(score float64) models.Rating {
	switch {
	case score >= ProductiveThreshold:
		return models.RatingProductive
	case score <= DistractingThreshold:
		return models.RatingDistracting
	default:
		return models.RatingNeutral
	}
}

// Categories is an immutable snapshot of the app category table keyed by app name.
type Categories map[string]models.AppCategory

// Rating returns the rating for appName, or neutral when the app is unknown.
func (c Categories) Rating(appName string) models.Rating {
	if cat, ok := c[appName]; ok && cat.ProductivityRating != "" {
		return cat.ProductivityRating
	}
	return models.RatingNeutral
}

// Scorer computes per-activity productivity scores.
type Scorer struct {
	categories *CategoryCache
	logger     *slog.Logger
}

func NewScorer(categories *CategoryCache, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{categories: categories, logger: logger}
}

// Snapshot returns the category map a computation unit should work against.
func (s *Scorer) Snapshot(ctx context.Context) Categories {
	if s.categories == nil {
		return Categories{}
	}
	return s.categories.Snapshot(ctx)
}

// Score returns the productivity score of a single activity in [0,1].
func (s *Scorer) Score(ctx context.Context, activity models.ActivityRecord) float64 {
	return ScoreWith(s.Snapshot(ctx), activity)
}

// Enrich returns a copy of activity with its score and rating filled in.
func (s *Scorer) Enrich(ctx context.Context, activity models.ActivityRecord) models.ActivityRecord {
	return EnrichWith(s.Snapshot(ctx), activity)
}

// ScoreWith scores an activity against a category snapshot.
func ScoreWith(categories Categories, activity models.ActivityRecord) float64 {
	score := Weight(categories.Rating(activity.AppName))

	if activity.Duration > LongActivityThreshold {
		score += bonus
	}
	if activity.CPUUsage != nil && *activity.CPUUsage > activeCPUMin && *activity.CPUUsage < activeCPUMax {
		score += bonus
	}
	if activity.ContextSwitches != nil && *activity.ContextSwitches < lowSwitchThreshold {
		score += bonus
	}

	return Clamp(score)
}

// EnrichWith sets ProductivityScore and ProductivityRating on a copy of activity.
func EnrichWith(categories Categories, activity models.ActivityRecord) models.ActivityRecord {
	activity.ProductivityScore = ScoreWith(categories, activity)
	activity.ProductivityRating = RatingForScore(activity.ProductivityScore)
	if activity.Category == "" {
		if cat, ok := categories[activity.AppName]; ok {
			activity.Category = cat.Category
		}
	}
	return activity
}

// CalculateProductivityScore is the duration-weighted mean score of activities.
// Without any recorded duration it falls back to the plain mean; empty input scores 0.
func CalculateProductivityScore(categories Categories, activities []models.ActivityRecord) float64 {
	if len(activities) == 0 {
		return 0
	}

	var weighted, plain float64
	var total int64
	for _, a := range activities {
		score := ScoreWith(categories, a)
		plain += score
		if a.Duration > 0 {
			weighted += score * float64(a.Duration)
			total += a.Duration
		}
	}

	if total == 0 {
		return Clamp(plain / float64(len(activities)))
	}
	return Clamp(weighted / float64(total))
}

// Clamp limits v to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
