package models

// BlockType classifies a productivity block by its focus score.
type BlockType string

const (
	BlockDeepFocus   BlockType = "deep_focus"
	BlockShallowWork BlockType = "shallow_work"
	BlockDistraction BlockType = "distraction"
)

// EnergyLevel is derived from CPU, keyboard and mouse intensity.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// BreakType buckets an idle gap by length.
type BreakType string

const (
	BreakMicro BreakType = "micro"
	BreakShort BreakType = "short"
	BreakLong  BreakType = "long"
)

// WorkSession is a span of activity bounded by idle gaps.
type WorkSession struct {
	ID                 string  `gorm:"primaryKey" json:"id"`
	StartTime          int64   `gorm:"not null;index" json:"start_time"`
	EndTime            int64   `gorm:"not null" json:"end_time"`
	Duration           int64   `gorm:"not null" json:"duration"`
	FocusScore         float64 `json:"focus_score"`
	ProductivityScore  float64 `json:"productivity_score"`
	ProductivityRating Rating  `json:"productivity_rating"`
	ContextSwitches    int     `json:"context_switches"`
	BreakDuration      int64   `json:"break_duration"`
	DominantApp        string  `json:"dominant_app"`
	DominantCategory   string  `json:"dominant_category"`
	ActivityCount      int     `json:"activity_count"`
}

// FocusSession is a sustained run on a single application.
type FocusSession struct {
	ID            string  `gorm:"primaryKey" json:"id"`
	SessionID     string  `gorm:"index" json:"session_id,omitempty"`
	AppName       string  `gorm:"not null" json:"app_name"`
	StartTime     int64   `gorm:"not null;index" json:"start_time"`
	EndTime       int64   `gorm:"not null" json:"end_time"`
	Duration      int64   `gorm:"not null" json:"duration"`
	Interruptions int     `json:"interruptions"`
	FocusScore    float64 `json:"focus_score"`
	Keystrokes    int     `json:"keystrokes"`
	MouseClicks   int     `json:"mouse_clicks"`
}

// ProductivityBlock is a fixed 30-minute bucket of a work session.
type ProductivityBlock struct {
	ID                 string      `gorm:"primaryKey" json:"id"`
	SessionID          string      `gorm:"index" json:"session_id"`
	StartTime          int64       `gorm:"not null;index" json:"start_time"`
	EndTime            int64       `gorm:"not null" json:"end_time"`
	Type               BlockType   `json:"type"`
	EnergyLevel        EnergyLevel `json:"energy_level"`
	QualityScore       float64     `json:"quality_score"`
	FocusScore         float64     `json:"focus_score"`
	ProductivityRating Rating      `json:"productivity_rating"`
	ActiveTime         int64       `json:"active_time"`
	DominantApp        string      `json:"dominant_app"`
}

// BreakPattern is an idle gap between two activities.
type BreakPattern struct {
	StartTime int64     `json:"start_time"`
	EndTime   int64     `json:"end_time"`
	Duration  int64     `json:"duration"`
	Type      BreakType `json:"type"`
}
