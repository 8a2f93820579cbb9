package config

import (
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "FOCUSLENS"

// environment holds the raw FOCUSLENS_* values. Fields stay strings so a
// malformed value is skipped instead of failing the whole load. Names come
// from split_words rather than envconfig tags, which would also match the
// unprefixed variable.
type environment struct {
	DBPath          string `split_words:"true"`
	PollInterval    string `split_words:"true"`
	IdleThreshold   string `split_words:"true"`
	PIDFile         string `split_words:"true"`
	LogFile         string `split_words:"true"`
	ExcludeIdle     string `split_words:"true"`
	Timezone        string
	WebHost         string `split_words:"true"`
	WebPort         string `split_words:"true"`
	MonitorInterval string `split_words:"true"`
	CategoryTTL     string `split_words:"true"`
	TrendTTL        string `split_words:"true"`
	WebhookURL      string `split_words:"true"`
	WebhookTimeout  string `split_words:"true"`
	OtelEnabled     string `split_words:"true"`
	OtelEndpoint    string `split_words:"true"`
	OtelInsecure    string `split_words:"true"`
	LogLevel        string `split_words:"true"`
}

// seconds parses a positive integer number of seconds.
func seconds(value string) (time.Duration, bool) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values; malformed values are ignored.
func LoadFromEnv(cfg *Config) {
	var env environment
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return
	}

	if env.DBPath != "" {
		cfg.Database.Path = env.DBPath
	}

	if v := env.PollInterval; v != "" {
		if interval, ok := seconds(v); ok &&
			interval >= cfg.Tracker.MinPollInterval && interval <= cfg.Tracker.MaxPollInterval {
			cfg.Tracker.PollInterval = interval
		}
	}

	if v := env.IdleThreshold; v != "" {
		if d, ok := seconds(v); ok {
			cfg.Tracker.IdleThreshold = d
		}
	}

	if env.PIDFile != "" {
		cfg.Daemon.PIDFile = env.PIDFile
	}

	if env.LogFile != "" {
		cfg.Daemon.LogFile = env.LogFile
	}

	if v := env.ExcludeIdle; v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			cfg.Report.ExcludeIdle = val
		}
	}

	if env.Timezone != "" {
		cfg.Report.TimeZone = env.Timezone
	}

	if env.WebHost != "" {
		cfg.Web.Host = env.WebHost
	}

	if v := env.WebPort; v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}

	if v := env.MonitorInterval; v != "" {
		if v == "0" {
			cfg.Monitor.Interval = 0
		} else if d, ok := seconds(v); ok {
			cfg.Monitor.Interval = d
		}
	}

	if v := env.CategoryTTL; v != "" {
		if d, ok := seconds(v); ok {
			cfg.Analytics.CategoryTTL = d
		}
	}

	if v := env.TrendTTL; v != "" {
		if d, ok := seconds(v); ok {
			cfg.Analytics.TrendTTL = d
		}
	}

	if env.WebhookURL != "" {
		cfg.Webhook.URL = env.WebhookURL
	}

	if v := env.WebhookTimeout; v != "" {
		if d, ok := seconds(v); ok {
			cfg.Webhook.Timeout = d
		}
	}

	if v := env.OtelEnabled; v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			cfg.Otel.Enabled = val
		}
	}

	if env.OtelEndpoint != "" {
		cfg.Otel.Endpoint = env.OtelEndpoint
	}

	if v := env.OtelInsecure; v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			cfg.Otel.Insecure = val
		}
	}

	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
