package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Tracker   TrackerConfig
	Daemon    DaemonConfig
	Report    ReportConfig
	Web       WebConfig
	Monitor   MonitorConfig
	Analytics AnalyticsConfig
	Webhook   WebhookConfig
	Otel      OtelConfig
	Log       LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite database file
}

// TrackerConfig holds capture behavior configuration
type TrackerConfig struct {
	PollInterval    time.Duration // How often to sample the focused window
	MinPollInterval time.Duration
	MaxPollInterval time.Duration
	IdleThreshold   time.Duration // Input idle time before a sample is marked idle
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string
	LogFile string
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	ExcludeIdle bool
	TimeZone    string
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string
	Port int
}

// MonitorConfig controls system resource sampling
type MonitorConfig struct {
	Interval time.Duration // Zero disables periodic sampling
}

// AnalyticsConfig holds cache lifetimes for the analytics engine
type AnalyticsConfig struct {
	CategoryTTL time.Duration
	TrendTTL    time.Duration
}

// WebhookConfig configures the JSON notification sink
type WebhookConfig struct {
	URL     string // Empty disables the webhook
	Timeout time.Duration
}

// OtelConfig configures the OTLP metrics exporter
type OtelConfig struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

type LogConfig struct {
	Level string
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/focuslens/focuslens.db
		},
		Tracker: TrackerConfig{
			PollInterval:    time.Second,
			MinPollInterval: time.Second,
			MaxPollInterval: 300 * time.Second,
			IdleThreshold:   300 * time.Second,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/focuslens-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/focuslens-%d.log", os.Getuid()),
		},
		Report: ReportConfig{
			ExcludeIdle: true,
			TimeZone:    "Local",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid(), // Per-user port so several users can run a daemon
		},
		Monitor: MonitorConfig{
			Interval: time.Minute,
		},
		Analytics: AnalyticsConfig{
			CategoryTTL: 5 * time.Minute,
			TrendTTL:    time.Hour,
		},
		Webhook: WebhookConfig{
			Timeout: 5 * time.Second,
		},
		Otel: OtelConfig{
			Endpoint: "localhost:4317",
			Insecure: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Tracker.IdleThreshold < 0 {
		return fmt.Errorf("idle threshold cannot be negative")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if c.Monitor.Interval < 0 {
		return fmt.Errorf("monitor interval cannot be negative")
	}

	if c.Analytics.CategoryTTL <= 0 || c.Analytics.TrendTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if c.Webhook.URL != "" && c.Webhook.Timeout <= 0 {
		return fmt.Errorf("webhook timeout must be positive when a webhook URL is set")
	}

	if c.Otel.Enabled && c.Otel.Endpoint == "" {
		return fmt.Errorf("otel endpoint cannot be empty when otel is enabled")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.Report.TimeZone, err)
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// Location resolves Report.TimeZone. "Local" and "" map to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Report.TimeZone == "" || c.Report.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Report.TimeZone)
}

// LogLevel parses Log.Level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String returns a string representation of the config
func (c *Config) String() string {
	webhook := c.Webhook.URL
	if webhook == "" {
		webhook = "(disabled)"
	}
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Tracker:
    Poll Interval: %v
    Idle Threshold: %v
  Daemon:
    PID File: %s
    Log File: %s
  Report:
    Exclude Idle: %v
    Time Zone: %s
  Web:
    Host: %s
    Port: %d
  Monitor:
    Interval: %v
  Analytics:
    Category TTL: %v
    Trend TTL: %v
  Webhook:
    URL: %s
  OTel:
    Enabled: %v
    Endpoint: %s
  Log:
    Level: %s`,
		c.Database.Path,
		c.Tracker.PollInterval,
		c.Tracker.IdleThreshold,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Report.ExcludeIdle,
		c.Report.TimeZone,
		c.Web.Host,
		c.Web.Port,
		c.Monitor.Interval,
		c.Analytics.CategoryTTL,
		c.Analytics.TrendTTL,
		webhook,
		c.Otel.Enabled,
		c.Otel.Endpoint,
		c.Log.Level,
	)
}
