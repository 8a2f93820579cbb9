package sink

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/ports"
	"github.com/actionsum/focuslens/internal/session"
	"github.com/actionsum/focuslens/version"
)

const serviceName = "focuslens"

// OtelConfig holds OTLP exporter configuration.
type OtelConfig struct {
	Endpoint string
	Enabled  bool
	Insecure bool
}

// OtelExporter records closed sessions and insight passes as OTLP metrics.
type OtelExporter struct {
	provider          *sdkmetric.MeterProvider
	sessionsTotal     metric.Int64Counter
	sessionDuration   metric.Float64Histogram
	productivityScore metric.Float64Histogram
	focusScore        metric.Float64Histogram
	contextSwitches   metric.Int64Histogram
	insightsTotal     metric.Int64Counter
	warningsTotal     metric.Int64Counter
}

var _ ports.Notifier = (*OtelExporter)(nil)

// NewOtelExporter creates an exporter pushing to an OTEL collector over gRPC.
func NewOtelExporter(ctx context.Context, cfg OtelConfig) (*OtelExporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	e, err := newOtelExporter(provider)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	return e, nil
}

func newOtelExporter(provider *sdkmetric.MeterProvider) (*OtelExporter, error) {
	meter := provider.Meter(serviceName)
	e := &OtelExporter{provider: provider}
	var err error

	if e.sessionsTotal, err = meter.Int64Counter(
		"focuslens_work_sessions_total",
		metric.WithDescription("Closed work sessions"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}

	if e.sessionDuration, err = meter.Float64Histogram(
		"focuslens_work_session_duration_seconds",
		metric.WithDescription("Work session duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	if e.productivityScore, err = meter.Float64Histogram(
		"focuslens_work_session_productivity_score",
		metric.WithDescription("Work session productivity score (0-1)"),
	); err != nil {
		return nil, fmt.Errorf("creating productivity histogram: %w", err)
	}

	if e.focusScore, err = meter.Float64Histogram(
		"focuslens_work_session_focus_score",
		metric.WithDescription("Work session focus score (0-1)"),
	); err != nil {
		return nil, fmt.Errorf("creating focus histogram: %w", err)
	}

	if e.contextSwitches, err = meter.Int64Histogram(
		"focuslens_work_session_context_switches",
		metric.WithDescription("Context switches per work session"),
		metric.WithUnit("{switch}"),
	); err != nil {
		return nil, fmt.Errorf("creating switches histogram: %w", err)
	}

	if e.insightsTotal, err = meter.Int64Counter(
		"focuslens_insights_total",
		metric.WithDescription("Generated insights"),
		metric.WithUnit("{insight}"),
	); err != nil {
		return nil, fmt.Errorf("creating insights counter: %w", err)
	}

	if e.warningsTotal, err = meter.Int64Counter(
		"focuslens_warnings_total",
		metric.WithDescription("Detected productivity warnings"),
		metric.WithUnit("{warning}"),
	); err != nil {
		return nil, fmt.Errorf("creating warnings counter: %w", err)
	}

	return e, nil
}

func (e *OtelExporter) Notify(ctx context.Context, n ports.Notification) {
	switch p := n.Payload.(type) {
	case session.Summary:
		e.recordSession(ctx, p.Session)
	case *models.WorkSession:
		e.recordSession(ctx, p)
	case models.InsightReport:
		e.recordInsights(ctx, p)
	}
}

func (e *OtelExporter) recordSession(ctx context.Context, ws *models.WorkSession) {
	if ws == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String("rating", string(ws.ProductivityRating)),
		attribute.String("dominant_category", ws.DominantCategory),
	)

	e.sessionsTotal.Add(ctx, 1, opt)
	e.sessionDuration.Record(ctx, float64(ws.Duration)/1000, opt)
	e.productivityScore.Record(ctx, ws.ProductivityScore, opt)
	e.focusScore.Record(ctx, ws.FocusScore, opt)
	e.contextSwitches.Record(ctx, int64(ws.ContextSwitches), opt)
}

func (e *OtelExporter) recordInsights(ctx context.Context, r models.InsightReport) {
	for _, in := range r.Insights {
		e.insightsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", in.Type),
			attribute.String("priority", string(in.Priority)),
		))
	}
	for _, w := range r.Warnings {
		e.warningsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", w.Type),
			attribute.String("severity", string(w.Severity)),
		))
	}
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *OtelExporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
