package database

import (
	"context"
	"time"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/ports"

	"github.com/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the gorm implementation of ports.Store.
type Repository struct {
	db *DB
}

var _ ports.Store = (*Repository)(nil)

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveActivity inserts a new activity record. App names are stored as captured.
func (r *Repository) SaveActivity(ctx context.Context, activity *models.ActivityRecord) error {
	result := r.db.WithContext(ctx).Create(activity)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert activity")
	}
	return nil
}

// GetActivities returns the records matching filter in chronological order.
func (r *Repository) GetActivities(ctx context.Context, filter ports.ActivityFilter) ([]models.ActivityRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityRecord{})

	if !filter.Start.IsZero() {
		query = query.Where("timestamp >= ?", filter.Start.UnixMilli())
	}
	if !filter.End.IsZero() {
		query = query.Where("timestamp < ?", filter.End.UnixMilli())
	}
	if len(filter.AppNames) > 0 {
		query = query.Where("app_name IN ?", filter.AppNames)
	}
	if len(filter.Categories) > 0 {
		query = query.Where("category IN ?", filter.Categories)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var activities []models.ActivityRecord
	if err := query.Order("timestamp ASC").Find(&activities).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query activities")
	}
	return activities, nil
}

// GetLatestActivity retrieves the most recent activity, or nil when there is none.
func (r *Repository) GetLatestActivity(ctx context.Context) (*models.ActivityRecord, error) {
	var activity models.ActivityRecord
	result := r.db.WithContext(ctx).Order("timestamp DESC").First(&activity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest activity")
	}
	return &activity, nil
}

// GetAppCategories returns every known app category.
func (r *Repository) GetAppCategories(ctx context.Context) ([]models.AppCategory, error) {
	var categories []models.AppCategory
	if err := r.db.WithContext(ctx).Order("app_name ASC").Find(&categories).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query app categories")
	}
	return categories, nil
}

// UpsertAppCategory creates or replaces the category for an app name.
func (r *Repository) UpsertAppCategory(ctx context.Context, category *models.AppCategory) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "productivity_rating", "is_user_defined", "updated_at"}),
	}).Create(category)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to upsert app category")
	}
	return nil
}

func (r *Repository) SaveWorkSession(ctx context.Context, session *models.WorkSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return errors.Wrap(err, "failed to insert work session")
	}
	return nil
}

// GetWorkSessions returns sessions that started at or after since, oldest first.
func (r *Repository) GetWorkSessions(ctx context.Context, since time.Time) ([]models.WorkSession, error) {
	var sessions []models.WorkSession
	result := r.db.WithContext(ctx).
		Where("start_time >= ?", since.UnixMilli()).
		Order("start_time ASC").
		Find(&sessions)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query work sessions")
	}
	return sessions, nil
}

func (r *Repository) SaveFocusSession(ctx context.Context, session *models.FocusSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return errors.Wrap(err, "failed to insert focus session")
	}
	return nil
}

func (r *Repository) SaveProductivityBlock(ctx context.Context, block *models.ProductivityBlock) error {
	if err := r.db.WithContext(ctx).Create(block).Error; err != nil {
		return errors.Wrap(err, "failed to insert productivity block")
	}
	return nil
}

func (r *Repository) SaveInsight(ctx context.Context, insight *models.Insight) error {
	if err := r.db.WithContext(ctx).Create(insight).Error; err != nil {
		return errors.Wrap(err, "failed to insert insight")
	}
	return nil
}

// GetInsights returns the most recent insights, newest first.
func (r *Repository) GetInsights(ctx context.Context, limit int) ([]models.Insight, error) {
	var insights []models.Insight
	query := r.db.WithContext(ctx).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&insights).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query insights")
	}
	return insights, nil
}

func (r *Repository) SaveSystemMetrics(ctx context.Context, metrics *models.SystemMetrics) error {
	if err := r.db.WithContext(ctx).Create(metrics).Error; err != nil {
		return errors.Wrap(err, "failed to insert system metrics")
	}
	return nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// DeleteActivitiesBefore removes activities older than before and returns the number deleted.
func (r *Repository) DeleteActivitiesBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("timestamp < ?", before.UnixMilli()).Delete(&models.ActivityRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old activities")
	}
	return result.RowsAffected, nil
}

// Clear removes all tracked and derived data. App categories are kept.
func (r *Repository) Clear() error {
	tables := []string{
		"activity_records",
		"work_sessions",
		"focus_sessions",
		"productivity_blocks",
		"system_metrics",
		"insights",
	}
	for _, table := range tables {
		if err := r.db.Exec("DELETE FROM " + table).Error; err != nil {
			return errors.Wrapf(err, "failed to clear %s", table)
		}
	}
	return nil
}
