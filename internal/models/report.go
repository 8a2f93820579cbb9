package models

import "time"

// ReportPeriod is the half-open range [Start, End) a report covers.
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"`
}

// AppSummary is the time spent in one application over a report period.
type AppSummary struct {
	AppName    string  `json:"app_name"`
	Category   string  `json:"category,omitempty"`
	Rating     Rating  `json:"productivity_rating,omitempty"`
	Duration   int64   `json:"duration"`
	Percentage float64 `json:"percentage"`
}

// Report is the per-period view rendered by the CLI and the HTTP API.
type Report struct {
	Period        ReportPeriod        `json:"period"`
	Metrics       ProductivityMetrics `json:"metrics"`
	Apps          []AppSummary        `json:"apps"`
	TotalDuration int64               `json:"total_duration"`
	GeneratedAt   time.Time           `json:"generated_at"`
}
