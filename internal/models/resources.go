package models

// SystemMetrics is a point-in-time snapshot of machine load.
type SystemMetrics struct {
	ID            uint    `gorm:"primaryKey" json:"-"`
	Timestamp     int64   `gorm:"not null;index" json:"timestamp"`
	CPUUsage      float64 `json:"cpu_usage"`
	MemoryUsage   float64 `json:"memory_usage"`
	DiskUsage     float64 `json:"disk_usage"`
	NetworkRxRate float64 `json:"network_rx_rate"` // bytes per second
	NetworkTxRate float64 `json:"network_tx_rate"`
	LoadAverage   float64 `json:"load_average"`
}

func (SystemMetrics) TableName() string {
	return "system_metrics"
}

type ImpactLevel string

const (
	ImpactLevelLow    ImpactLevel = "low"
	ImpactLevelMedium ImpactLevel = "medium"
	ImpactLevelHigh   ImpactLevel = "high"
)

// ResourceCorrelation relates an activity to the machine state it ran under.
type ResourceCorrelation struct {
	MemoryImpact     ImpactLevel `json:"memory_impact"`
	CPUImpact        ImpactLevel `json:"cpu_impact"`
	PerformanceScore float64     `json:"performance_score"`
	Recommendations  []string    `json:"recommendations,omitempty"`
}

type UsageCategory string

const (
	UsageLight    UsageCategory = "light"
	UsageModerate UsageCategory = "moderate"
	UsageHeavy    UsageCategory = "heavy"
	UsageExtreme  UsageCategory = "extreme"
)

type ResourceIntensiveApp struct {
	AppName       string        `json:"app_name"`
	AverageCPU    float64       `json:"average_cpu"`
	AverageMemory float64       `json:"average_memory"`
	TotalDuration int64         `json:"total_duration"`
	ImpactScore   float64       `json:"impact_score"`
	Category      UsageCategory `json:"category"`
}

type ResourceReport struct {
	System        SystemMetrics          `json:"system"`
	IntensiveApps []ResourceIntensiveApp `json:"intensive_apps"`
	Latest        *ResourceCorrelation   `json:"latest_correlation,omitempty"`
}
