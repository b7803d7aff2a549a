package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

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
	ServiceName    = "rem-session-toolkit"
	ServiceVersion = "v1.2.0"
	MeterName      = "remcli"
)

// OTelConfig selects exporters and sampling for traces and metrics.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
	PrometheusPort string
}

// DefaultOTelConfig returns the development setup: stdout traces and
// Prometheus metrics with every trace sampled.
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
		PrometheusPort: "9090",
	}
}

// OTelProviders bundles the configured trace and metric pipelines. Fields
// stay nil when the matching signal is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel builds the trace and metric pipelines and installs them as
// the process-wide defaults. A nil cfg falls back to DefaultOTelConfig.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	res := newResource(cfg)
	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing {
		tp, err := newTracerProvider(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		if tp != nil {
			providers.TracerProvider = tp
			providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
			otel.SetTracerProvider(tp)
		}
	}

	if cfg.EnableMetrics {
		mp, handler, err := newMeterProvider(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
		if mp != nil {
			providers.MeterProvider = mp
			providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
			providers.PrometheusHTTP = handler
			otel.SetMeterProvider(mp)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(context.Background(), "OpenTelemetry ready",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing", providers.TracerProvider != nil),
		slog.Bool("metrics", providers.MeterProvider != nil))

	return providers, nil
}

// Shutdown flushes and stops both pipelines. Buffered spans are exported
// before it returns.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown: %w", err)
	}
	return nil
}

// newResource describes this process to every exporter.
func newResource(cfg *OTelConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", instanceID()),
	)
}

// newTracerProvider returns (nil, nil) when the exporter is "none".
func newTracerProvider(cfg *OTelConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	switch cfg.TraceExporter {
	case "none":
		return nil, nil
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		), nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.TraceExporter)
	}
}

// newMeterProvider returns the provider plus the HTTP handler that serves
// the scrape endpoint, or nils when the exporter is "none".
func newMeterProvider(cfg *OTelConfig, res *resource.Resource) (*sdkmetric.MeterProvider, http.Handler, error) {
	switch cfg.MetricExporter {
	case "none":
		return nil, nil, nil
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return nil, nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		return mp, promhttp.Handler(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported metric exporter %q", cfg.MetricExporter)
	}
}

// instanceID distinguishes concurrent deployments sharing a collector.
func instanceID() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", host, time.Now().Unix())
}

// BusinessMetrics holds the instruments recorded across the toolkit. HTTP
// instruments are driven by middleware, extraction and report instruments
// by the services and exporter, and the rest by the hub and app runtime.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	ExtractionRunsTotal   metric.Int64Counter
	ExtractionRunDuration metric.Float64Histogram
	ExtractionActiveRuns  metric.Int64UpDownCounter
	ExtractionErrors      metric.Int64Counter

	SessionFilesProcessed metric.Int64Counter
	SessionFilesFailed    metric.Int64Counter
	SessionFileDuration   metric.Float64Histogram
	CurvesExtracted       metric.Int64Counter

	ReportRowsWritten   metric.Int64Counter
	ReportWriteDuration metric.Float64Histogram

	WebSocketClients metric.Int64UpDownCounter

	SystemErrors metric.Int64Counter
	SystemUptime metric.Float64UpDownCounter
}

// instrumentSet builds instruments on one meter, keeping the first
// creation error for a single check at the end.
type instrumentSet struct {
	meter metric.Meter
	err   error
}

func (s *instrumentSet) counter(name, desc string) metric.Int64Counter {
	c, err := s.meter.Int64Counter(name, metric.WithDescription(desc))
	if s.err == nil {
		s.err = err
	}
	return c
}

func (s *instrumentSet) seconds(name, desc string) metric.Float64Histogram {
	h, err := s.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if s.err == nil {
		s.err = err
	}
	return h
}

func (s *instrumentSet) gauge(name, desc string) metric.Int64UpDownCounter {
	g, err := s.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	if s.err == nil {
		s.err = err
	}
	return g
}

func (s *instrumentSet) secondsGauge(name, desc string) metric.Float64UpDownCounter {
	g, err := s.meter.Float64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if s.err == nil {
		s.err = err
	}
	return g
}

// CreateBusinessMetrics registers every toolkit instrument on the meter.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	s := &instrumentSet{meter: meter}

	m := &BusinessMetrics{
		HTTPRequestsTotal:   s.counter("http_requests_total", "Total number of HTTP requests"),
		HTTPRequestDuration: s.seconds("http_request_duration_seconds", "HTTP request duration in seconds"),
		HTTPActiveRequests:  s.gauge("http_active_requests", "Number of active HTTP requests"),

		ExtractionRunsTotal:   s.counter("extraction_runs_total", "Total number of extraction runs"),
		ExtractionRunDuration: s.seconds("extraction_run_duration_seconds", "Extraction run duration in seconds"),
		ExtractionActiveRuns:  s.gauge("extraction_active_runs", "Number of active extraction runs"),
		ExtractionErrors:      s.counter("extraction_errors_total", "Total number of extraction errors"),

		SessionFilesProcessed: s.counter("session_files_processed_total", "Total number of session files processed"),
		SessionFilesFailed:    s.counter("session_files_failed_total", "Total number of session files that failed extraction"),
		SessionFileDuration:   s.seconds("session_file_duration_seconds", "Per-file extraction duration in seconds"),
		CurvesExtracted:       s.counter("curves_extracted_total", "Total number of curves extracted by table kind"),

		ReportRowsWritten:   s.counter("report_rows_written_total", "Total number of report rows written"),
		ReportWriteDuration: s.seconds("report_write_duration_seconds", "Report write duration in seconds"),

		WebSocketClients: s.gauge("websocket_clients", "Number of connected WebSocket clients"),

		SystemErrors: s.counter("system_errors_total", "Total number of system errors"),
		SystemUptime: s.secondsGauge("system_uptime_seconds", "System uptime in seconds"),
	}

	if s.err != nil {
		return nil, s.err
	}
	return m, nil
}

// TraceIDFromContext returns the active trace ID, or "" outside a span.
func TraceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// RecordError marks the current span failed and attaches err to it.
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent attaches a named event to the current span.
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrsFromMap(attributes)...))
}

// SetSpanAttributes copies attributes onto the current span.
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attrsFromMap(attributes)...)
}

func attrsFromMap(values map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(values))
	for k, v := range values {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return attrs
}

func outcome(success bool) attribute.KeyValue {
	if success {
		return attribute.String("status", "success")
	}
	return attribute.String("status", "failure")
}

// RecordExtractionMetrics records one finished extraction run. A nil
// metrics set makes every recorder here a no-op.
func RecordExtractionMetrics(ctx context.Context, metrics *BusinessMetrics, runID string, testType string, duration time.Duration, success bool, err error) {
	if metrics == nil {
		return
	}

	run := attribute.String("run.id", runID)
	tt := attribute.String("test.type", testType)

	metrics.ExtractionRunsTotal.Add(ctx, 1, metric.WithAttributes(run, tt))
	metrics.ExtractionRunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(run, tt, outcome(success)))
	if err != nil {
		metrics.ExtractionErrors.Add(ctx, 1,
			metric.WithAttributes(run, tt, attribute.String("error.type", fmt.Sprintf("%T", err))))
	}

	AddSpanEvent(ctx, "extraction.metrics_recorded", map[string]interface{}{
		"run.id":           runID,
		"success":          success,
		"duration_seconds": duration.Seconds(),
	})
}

// RecordSessionFileMetrics records the outcome of one session file.
func RecordSessionFileMetrics(ctx context.Context, metrics *BusinessMetrics, filename, testType string, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}

	file := attribute.String("file.name", filename)
	tt := attribute.String("test.type", testType)

	counter := metrics.SessionFilesProcessed
	if !success {
		counter = metrics.SessionFilesFailed
	}
	counter.Add(ctx, 1, metric.WithAttributes(file, tt))
	metrics.SessionFileDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(file, tt, outcome(success)))
}

// RecordCurvesExtracted counts curves landed in one result table.
func RecordCurvesExtracted(ctx context.Context, metrics *BusinessMetrics, kind string, count int64) {
	if metrics == nil {
		return
	}
	metrics.CurvesExtracted.Add(ctx, count, metric.WithAttributes(attribute.String("table.kind", kind)))
}

// RecordActiveExtractionChange moves the in-flight run gauge by delta.
func RecordActiveExtractionChange(ctx context.Context, metrics *BusinessMetrics, delta int64, testType string) {
	if metrics == nil {
		return
	}
	metrics.ExtractionActiveRuns.Add(ctx, delta, metric.WithAttributes(attribute.String("test.type", testType)))
}

// RecordReportWrite records rows and elapsed time for a written report.
func RecordReportWrite(ctx context.Context, metrics *BusinessMetrics, report string, rows int64, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("report", report))
	metrics.ReportRowsWritten.Add(ctx, rows, attrs)
	metrics.ReportWriteDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordWSClientChange moves the connected client gauge by delta.
func RecordWSClientChange(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.WebSocketClients.Add(ctx, delta)
}
