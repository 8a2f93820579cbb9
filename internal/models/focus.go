package models

// SwitchType classifies a context switch by how long the previous app held focus.
type SwitchType string

const (
	SwitchQuick    SwitchType = "quick"
	SwitchNormal   SwitchType = "normal"
	SwitchExtended SwitchType = "extended"
)

// Impact is the estimated cost of a context switch.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// ContextSwitch is a transition between two consecutive activities on different apps.
type ContextSwitch struct {
	FromApp    string     `json:"from_app"`
	ToApp      string     `json:"to_app"`
	Timestamp  int64      `json:"timestamp"`
	Duration   int64      `json:"duration"`
	SwitchType SwitchType `json:"switch_type"`
	Impact     Impact     `json:"impact"`

	// Index of the activity switched into.
	Index int `json:"-"`
}

type FocusPatterns struct {
	AverageSessionDuration float64 `json:"average_session_duration"`
	SessionsPerHour        float64 `json:"sessions_per_hour"`
	PeakFocusHour          int     `json:"peak_focus_hour"`
	LowestFocusHour        int     `json:"lowest_focus_hour"`
	FocusConsistency       float64 `json:"focus_consistency"`
	InterruptionFrequency  float64 `json:"interruption_frequency"`
	AverageRecoveryTime    float64 `json:"average_recovery_time"`
}

type AppCount struct {
	AppName string `json:"app_name"`
	Count   int    `json:"count"`
}

type RecoveryPattern struct {
	AppName             string   `json:"app_name"`
	Interruptions       int      `json:"interruptions"`
	SuccessRate         float64  `json:"success_rate"`
	AverageRecoveryTime float64  `json:"average_recovery_time"`
	RecoveryApps        []string `json:"recovery_apps"`
}

type InterruptionAnalysis struct {
	TotalInterruptions int               `json:"total_interruptions"`
	AverageDuration    float64           `json:"average_duration"`
	TopInterrupters    []AppCount        `json:"top_interrupters"`
	HourlyDistribution [24]int           `json:"hourly_distribution"`
	RecoveryPatterns   []RecoveryPattern `json:"recovery_patterns"`
}

// FocusReport bundles the focus analyses of one activity range.
type FocusReport struct {
	Score           float64              `json:"focus_score"`
	Patterns        FocusPatterns        `json:"patterns"`
	Interruptions   InterruptionAnalysis `json:"interruptions"`
	ContextSwitches []ContextSwitch      `json:"context_switches"`
	Sessions        []FocusSession       `json:"focus_sessions"`
}
