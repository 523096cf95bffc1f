package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "tarifa"
	ServiceVersion = "0.1.0"
	MeterName      = "tarifa"
)

// OTelConfig holds OpenTelemetry configuration.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the initialized OpenTelemetry providers.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics providers for a run.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "initializing opentelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		// The CLI's stdout is the result channel (--format text/json); spans
		// go to stderr so they never interleave with command output.
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "tracing initialized", slog.String("exporter", cfg.TraceExporter))
	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		// Use a private registry rather than the global default so the
		// handler this returns exposes exactly (and only) the meters this
		// process creates, independent of anything else that might touch
		// the default registry.
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "metrics initialized", slog.String("exporter", cfg.MetricExporter))
	return nil
}

// ResearchMetrics holds the metrics recorded across a research run: factor
// computation, combiner calls, and backtest periods.
type ResearchMetrics struct {
	FactorsComputedTotal   metric.Int64Counter
	FactorComputeDuration  metric.Float64Histogram
	SymbolsDroppedTotal    metric.Int64Counter
	NaNObservationsTotal   metric.Int64Counter
	CombinerCallsTotal     metric.Int64Counter
	EvaluatorRunsTotal     metric.Int64Counter
	BacktestPeriodsTotal   metric.Int64Counter
	BacktestRebalanceTotal metric.Int64Counter
	SystemErrors           metric.Int64Counter
}

// CreateResearchMetrics creates the counters and histograms the research
// commands record against during a run.
func CreateResearchMetrics(meter metric.Meter) (*ResearchMetrics, error) {
	factorsComputedTotal, err := meter.Int64Counter(
		"factors_computed_total",
		metric.WithDescription("Total number of factor score computations"),
	)
	if err != nil {
		return nil, err
	}

	factorComputeDuration, err := meter.Float64Histogram(
		"factor_compute_duration_seconds",
		metric.WithDescription("Duration of a single factor computation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	symbolsDroppedTotal, err := meter.Int64Counter(
		"symbols_dropped_total",
		metric.WithDescription("Total number of symbols dropped for missing/invalid data"),
	)
	if err != nil {
		return nil, err
	}

	nanObservationsTotal, err := meter.Int64Counter(
		"nan_observations_total",
		metric.WithDescription("Total number of non-finite observations encountered"),
	)
	if err != nil {
		return nil, err
	}

	combinerCallsTotal, err := meter.Int64Counter(
		"combiner_calls_total",
		metric.WithDescription("Total number of combiner invocations"),
	)
	if err != nil {
		return nil, err
	}

	evaluatorRunsTotal, err := meter.Int64Counter(
		"evaluator_runs_total",
		metric.WithDescription("Total number of evaluator runs"),
	)
	if err != nil {
		return nil, err
	}

	backtestPeriodsTotal, err := meter.Int64Counter(
		"backtest_periods_total",
		metric.WithDescription("Total number of backtest periods processed"),
	)
	if err != nil {
		return nil, err
	}

	backtestRebalanceTotal, err := meter.Int64Counter(
		"backtest_rebalances_total",
		metric.WithDescription("Total number of backtest portfolio rebalances"),
	)
	if err != nil {
		return nil, err
	}

	systemErrors, err := meter.Int64Counter(
		"system_errors_total",
		metric.WithDescription("Total number of system errors"),
	)
	if err != nil {
		return nil, err
	}

	return &ResearchMetrics{
		FactorsComputedTotal:   factorsComputedTotal,
		FactorComputeDuration:  factorComputeDuration,
		SymbolsDroppedTotal:    symbolsDroppedTotal,
		NaNObservationsTotal:   nanObservationsTotal,
		CombinerCallsTotal:     combinerCallsTotal,
		EvaluatorRunsTotal:     evaluatorRunsTotal,
		BacktestPeriodsTotal:   backtestPeriodsTotal,
		BacktestRebalanceTotal: backtestRebalanceTotal,
		SystemErrors:           systemErrors,
	}, nil
}

// Shutdown gracefully shuts down the OpenTelemetry providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "opentelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the OTel trace ID from context for log correlation.
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds a named event with structured attributes to the current span.
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, toAttribute(k, v))
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span.
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	for k, v := range attributes {
		span.SetAttributes(toAttribute(k, v))
	}
}

func toAttribute(k string, v interface{}) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(k, val)
	case int:
		return attribute.Int(k, val)
	case int64:
		return attribute.Int64(k, val)
	case float64:
		return attribute.Float64(k, val)
	case bool:
		return attribute.Bool(k, val)
	default:
		return attribute.String(k, fmt.Sprintf("%v", val))
	}
}

// RecordFactorComputation records the outcome of one factor score computation.
func RecordFactorComputation(ctx context.Context, m *ResearchMetrics, factorName string, duration time.Duration, symbolsScored, symbolsDropped int) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("factor", factorName)}
	m.FactorsComputedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.FactorComputeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if symbolsDropped > 0 {
		m.SymbolsDroppedTotal.Add(ctx, int64(symbolsDropped), metric.WithAttributes(attrs...))
	}
}

// RecordBacktestPeriod records a single processed backtest period.
func RecordBacktestPeriod(ctx context.Context, m *ResearchMetrics, rebalanced bool) {
	if m == nil {
		return
	}
	m.BacktestPeriodsTotal.Add(ctx, 1)
	if rebalanced {
		m.BacktestRebalanceTotal.Add(ctx, 1)
	}
}
