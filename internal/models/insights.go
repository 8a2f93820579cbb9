package models

import "time"

// ProductivityTrend summarises one calendar day.
type ProductivityTrend struct {
	Date               string   `json:"date"` // YYYY-MM-DD in the analyzer's location
	ProductivityScore  float64  `json:"productivity_score"`
	FocusScore         float64  `json:"focus_score"`
	Efficiency         float64  `json:"efficiency"`
	ProductiveTime     int64    `json:"productive_time"`
	TotalActiveTime    int64    `json:"total_active_time"`
	ContextSwitches    int      `json:"context_switches"`
	TopProductiveApps  []string `json:"top_productive_apps"`
	TopDistractingApps []string `json:"top_distracting_apps"`
	PeakHours          []int    `json:"peak_hours"`
}

type AchievementLevel string

const (
	LevelGood        AchievementLevel = "good"
	LevelExcellent   AchievementLevel = "excellent"
	LevelOutstanding AchievementLevel = "outstanding"
)

type Achievement struct {
	Type        string           `json:"type"`
	Level       AchievementLevel `json:"level"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Threshold   float64          `json:"threshold"`
	Value       float64          `json:"value"`
	AchievedAt  time.Time        `json:"achieved_at"`
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type ProductivityWarning struct {
	Type            string    `json:"type"`
	Severity        Severity  `json:"severity"`
	Message         string    `json:"message"`
	Threshold       float64   `json:"threshold"`
	Value           float64   `json:"value"`
	Recommendations []string  `json:"recommendations"`
	DetectedAt      time.Time `json:"detected_at"`
}

// Insight is the persisted, user-facing form of achievements, warnings and observations.
type Insight struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Type            string    `gorm:"not null;index" json:"type"`
	Title           string    `gorm:"not null" json:"title"`
	Description     string    `json:"description"`
	Priority        Severity  `gorm:"not null" json:"priority"`
	Actionable      bool      `json:"actionable"`
	Recommendations []string  `gorm:"serializer:json" json:"recommendations,omitempty"`
	Timestamp       time.Time `gorm:"not null;index" json:"timestamp"`
}

// InsightReport is the output of one insight generation pass.
type InsightReport struct {
	Achievements []Achievement         `json:"achievements"`
	Warnings     []ProductivityWarning `json:"warnings"`
	Insights     []Insight             `json:"insights"`
}

// OptimizationSettings are derived work-hour and break suggestions.
type OptimizationSettings struct {
	WorkStartHour        int      `json:"work_start_hour"`
	WorkEndHour          int      `json:"work_end_hour"`
	BreakIntervalMinutes int      `json:"break_interval_minutes"`
	Recommendations      []string `json:"recommendations"`
}

type AppUsage struct {
	AppName  string `json:"app_name"`
	Duration int64  `json:"duration"`
}

// ProductivityMetrics is the result of analysing a list of activities.
type ProductivityMetrics struct {
	TotalActiveTime      int64       `json:"total_active_time"`
	ProductiveTime       int64       `json:"productive_time"`
	NeutralTime          int64       `json:"neutral_time"`
	DistractingTime      int64       `json:"distracting_time"`
	ProductivityScore    float64     `json:"productivity_score"`
	FocusScore           float64     `json:"focus_score"`
	ContextSwitches      int         `json:"context_switches"`
	PeakProductivityHour int         `json:"peak_productivity_hour"`
	HourlyProductivity   [24]float64 `json:"hourly_productivity"`
	TopApps              []AppUsage  `json:"top_apps"`
}
