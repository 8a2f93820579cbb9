package ports

import (
	"context"
	"time"

	"github.com/actionsum/focuslens/internal/models"
)

// ActivityFilter selects activity records. Zero values mean "no constraint".
type ActivityFilter struct {
	Start      time.Time
	End        time.Time
	AppNames   []string
	Categories []string
	Limit      int
	Offset     int
}

type ActivityStore interface {
	// GetActivities returns matching records ordered by timestamp ascending.
	GetActivities(ctx context.Context, filter ActivityFilter) ([]models.ActivityRecord, error)
	SaveActivity(ctx context.Context, activity *models.ActivityRecord) error
}

type CategoryStore interface {
	GetAppCategories(ctx context.Context) ([]models.AppCategory, error)
	UpsertAppCategory(ctx context.Context, category *models.AppCategory) error
}

type SessionStore interface {
	SaveWorkSession(ctx context.Context, session *models.WorkSession) error
	SaveFocusSession(ctx context.Context, session *models.FocusSession) error
	SaveProductivityBlock(ctx context.Context, block *models.ProductivityBlock) error
	GetWorkSessions(ctx context.Context, since time.Time) ([]models.WorkSession, error)
}

type InsightStore interface {
	SaveInsight(ctx context.Context, insight *models.Insight) error
}

type MetricsStore interface {
	SaveSystemMetrics(ctx context.Context, metrics *models.SystemMetrics) error
}

// Store is the full persistence collaborator.
type Store interface {
	ActivityStore
	CategoryStore
	SessionStore
	InsightStore
	MetricsStore
}
