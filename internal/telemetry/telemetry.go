// Package telemetry adapts the teacher's observability/telemetry.go
// OpenTelemetry wrapper to workq's own operations: the engine opens a
// span and records a counter around every enqueue/dequeue/complete/
// abandon, and records a counter (no span) for every maintenance pass.
// This is ambient instrumentation of the
// engine's own operations, distinct from the external metrics sink the
// spec names as an out-of-scope collaborator (§1) — it is the adapter a
// caller would wire a sink through, not the sink itself.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls whether and where telemetry is exported.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPHeaders    map[string]string
	SampleRate     float64
}

// Telemetry is the engine-facing tracer + meter wrapper.
type Telemetry struct {
	cfg           Config
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider

	operations    metric.Int64Counter
	faults        metric.Int64Counter
	maintenancePasses metric.Int64Counter
	queueDepth    metric.Int64UpDownCounter
}

// New builds a Telemetry. With Enabled false (the default zero value),
// every method is a documented no-op against the global otel no-op
// tracer/meter — callers never need a nil check.
func New(cfg Config) (*Telemetry, error) {
	t := &Telemetry{cfg: cfg}

	if !cfg.Enabled {
		t.tracer = otel.Tracer("workq")
		t.meter = otel.Meter("workq")
		return t, nil
	}

	if err := t.initTracing(); err != nil {
		return nil, fmt.Errorf("telemetry: init tracing: %w", err)
	}
	if err := t.initMetrics(); err != nil {
		return nil, fmt.Errorf("telemetry: init metrics: %w", err)
	}
	return t, nil
}

func (t *Telemetry) initTracing() error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(t.cfg.ServiceName),
			semconv.ServiceVersion(t.cfg.ServiceVersion),
			semconv.DeploymentEnvironment(t.cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlptrace.New(context.Background(),
		otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(t.cfg.OTLPEndpoint),
			otlptracehttp.WithHeaders(t.cfg.OTLPHeaders),
		),
	)
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}

	t.traceProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(t.cfg.SampleRate)),
	)

	otel.SetTracerProvider(t.traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.tracer = otel.Tracer("workq",
		trace.WithInstrumentationVersion("1.0.0"),
		trace.WithSchemaURL(semconv.SchemaURL),
	)
	return nil
}

func (t *Telemetry) initMetrics() error {
	t.meter = otel.Meter("workq",
		metric.WithInstrumentationVersion("1.0.0"),
		metric.WithSchemaURL(semconv.SchemaURL),
	)

	var err error
	t.operations, err = t.meter.Int64Counter(
		"workq_operations_total",
		metric.WithDescription("Total number of queue operations by kind"),
	)
	if err != nil {
		return fmt.Errorf("create operations counter: %w", err)
	}

	t.faults, err = t.meter.Int64Counter(
		"workq_faults_total",
		metric.WithDescription("Total number of transient/fatal faults by operation"),
	)
	if err != nil {
		return fmt.Errorf("create faults counter: %w", err)
	}

	t.maintenancePasses, err = t.meter.Int64Counter(
		"workq_maintenance_passes_total",
		metric.WithDescription("Total number of maintenance passes executed"),
	)
	if err != nil {
		return fmt.Errorf("create maintenance_passes counter: %w", err)
	}

	t.queueDepth, err = t.meter.Int64UpDownCounter(
		"workq_queue_depth",
		metric.WithDescription("Current ready-list depth"),
	)
	if err != nil {
		return fmt.Errorf("create queue_depth counter: %w", err)
	}
	return nil
}

// StartSpan opens a span for a queue operation and records it in the
// operations counter.
func (t *Telemetry) StartSpan(ctx context.Context, queueName, op string) (context.Context, trace.Span) {
	if t.operations != nil {
		t.operations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("workq.queue", queueName),
			attribute.String("workq.operation", op),
		))
	}
	return t.tracer.Start(ctx, "workq."+op,
		trace.WithAttributes(attribute.String("workq.queue", queueName)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// RecordFault records a fault against op and marks span as errored.
func (t *Telemetry) RecordFault(ctx context.Context, span trace.Span, op string, err error) {
	if err == nil {
		return
	}
	if t.faults != nil {
		t.faults.Add(ctx, 1, metric.WithAttributes(attribute.String("workq.operation", op)))
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// EndSpan ends span. Status is left as whatever RecordFault set; a span
// that never faulted keeps the default Unset status.
func EndSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}

// RecordMaintenancePass increments the maintenance-pass counter.
func (t *Telemetry) RecordMaintenancePass(ctx context.Context, queueName string) {
	if t.maintenancePasses != nil {
		t.maintenancePasses.Add(ctx, 1, metric.WithAttributes(attribute.String("workq.queue", queueName)))
	}
}

// UpdateQueueDepth reports the current ready-list depth.
func (t *Telemetry) UpdateQueueDepth(ctx context.Context, queueName string, delta int64) {
	if t.queueDepth != nil {
		t.queueDepth.Add(ctx, delta, metric.WithAttributes(attribute.String("workq.queue", queueName)))
	}
}

// Shutdown releases the trace provider, if one was started.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.traceProvider != nil {
		return t.traceProvider.Shutdown(ctx)
	}
	return nil
}
