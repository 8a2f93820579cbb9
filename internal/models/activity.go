package models

import (
	"time"
)

// Rating is the coarse productivity classification shared by apps, activities and sessions.
type Rating string

const (
	RatingProductive  Rating = "productive"
	RatingNeutral     Rating = "neutral"
	RatingDistracting Rating = "distracting"
)

// ActivityRecord is one coalesced observation of the focused application.
// Timestamps and durations are milliseconds.
type ActivityRecord struct {
	ID                 uint     `gorm:"primaryKey" json:"id"`
	Timestamp          int64    `gorm:"not null;index" json:"timestamp"`
	AppName            string   `gorm:"not null;index" json:"app_name"`
	WindowTitle        string   `gorm:"not null" json:"window_title"`
	Duration           int64    `gorm:"not null;default:0" json:"duration"`
	Category           string   `gorm:"index" json:"category,omitempty"`
	IsIdle             bool     `gorm:"not null;default:false" json:"is_idle"`
	URL                string   `json:"url,omitempty"`
	CPUUsage           *float64 `json:"cpu_usage,omitempty"`
	MemoryUsage        *float64 `json:"memory_usage,omitempty"`
	FocusScore         *float64 `json:"focus_score,omitempty"`
	ProductivityRating Rating   `json:"productivity_rating,omitempty"`
	ProductivityScore  float64  `json:"productivity_score"`
	ContextSwitches    *int     `json:"context_switches,omitempty"`
	Keystrokes         int      `gorm:"not null;default:0" json:"keystrokes"`
	MouseClicks        int      `gorm:"not null;default:0" json:"mouse_clicks"`
}

// End returns the millisecond timestamp at which the activity stopped.
func (a ActivityRecord) End() int64 {
	return a.Timestamp + a.Duration
}

// Time returns the activity start as a time.Time.
func (a ActivityRecord) Time() time.Time {
	return time.UnixMilli(a.Timestamp)
}

// AppCategory maps an application name to its category and rating.
// Lookups are exact and case-sensitive.
type AppCategory struct {
	AppName            string    `gorm:"primaryKey" json:"app_name"`
	Category           string    `gorm:"not null" json:"category"`
	ProductivityRating Rating    `gorm:"not null" json:"productivity_rating"`
	IsUserDefined      bool      `gorm:"not null;default:false" json:"is_user_defined"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Float returns a pointer to v, for populating optional metrics.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
