package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/actionsum/focuslens/internal/analytics"
	"github.com/actionsum/focuslens/internal/config"
	"github.com/actionsum/focuslens/internal/database"
	"github.com/actionsum/focuslens/internal/monitor"
	"github.com/actionsum/focuslens/internal/sink"
	"github.com/actionsum/focuslens/pkg/sysinfo"
)

// AppContext holds the dependencies shared by commands.
type AppContext struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *database.DB
	Repo      *database.Repository
	Engine    *analytics.Engine
	Sink      sink.Sink
	Collector *sysinfo.Collector
	Monitor   *monitor.ResourceMonitor
}

// loadConfig reads the environment and validates the result.
func loadConfig() (*config.Config, error) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel()}))
}

// NewAppContext opens the database and builds the engine. Sinks are only started
// when withSinks is set, so one-shot report commands never push notifications.
func NewAppContext(ctx context.Context, cfg *config.Config, logger *slog.Logger, withSinks bool) (*AppContext, error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var notifier sink.Sink = sink.NewNoOp()
	if withSinks {
		notifier = newSink(ctx, cfg, logger)
	}

	repo := database.NewRepository(db)
	collector := sysinfo.NewCollector("/")
	mon := monitor.NewResourceMonitor(collector, repo, logger)

	engine := analytics.New(repo, notifier, logger, analytics.Options{
		Location:    loc,
		CategoryTTL: cfg.Analytics.CategoryTTL,
		TrendTTL:    cfg.Analytics.TrendTTL,
		Monitor:     mon,
	})

	return &AppContext{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Repo:      repo,
		Engine:    engine,
		Sink:      notifier,
		Collector: collector,
		Monitor:   mon,
	}, nil
}

// newSink combines every configured sink. A sink that fails to start is logged and skipped.
func newSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) sink.Sink {
	var sinks sink.Multi

	if cfg.Webhook.URL != "" {
		sinks = append(sinks, sink.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout, logger))
	}

	if cfg.Otel.Enabled {
		exporter, err := sink.NewOtelExporter(ctx, sink.OtelConfig{
			Endpoint: cfg.Otel.Endpoint,
			Enabled:  cfg.Otel.Enabled,
			Insecure: cfg.Otel.Insecure,
		})
		if err != nil {
			logger.Warn("otel exporter unavailable", slog.Any("error", err))
		} else {
			sinks = append(sinks, exporter)
		}
	}

	switch len(sinks) {
	case 0:
		return sink.NewNoOp()
	case 1:
		return sinks[0]
	default:
		return sinks
	}
}

// Close flushes the sinks and releases the database.
func (a *AppContext) Close(ctx context.Context) error {
	var sinkErr error
	if a.Sink != nil {
		sinkErr = a.Sink.Close(ctx)
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return err
		}
	}
	return sinkErr
}

// openLogFile returns the daemon log file, falling back to stderr.
func openLogFile(path string) (io.Writer, func()) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr, func() {}
	}
	return f, func() { _ = f.Close() }
}
