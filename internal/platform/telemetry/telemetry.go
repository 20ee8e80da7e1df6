// Package telemetry sets up the OpenTelemetry trace and metric pipelines and
// owns the instruments the daemon records into: admin requests, lock waits
// and holds, violations and coroutine lifetimes.
//
// The exporter is "stdout" for development or "otlp" with a collector URL:
//
//	tp, err := telemetry.InitTracer(ctx, "daemon", telemetry.ExporterOTLP, "http://otel-collector:4318")
//
// Every Record method is a no-op on a nil *Metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Supported exporter names.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const instrumentationScope = "github.com/jsamuelsen11/go-daemon-core"

// Attribute keys for metric labels.
var (
	AttrHTTPMethod = attribute.Key("http.method")
	AttrHTTPStatus = attribute.Key("http.status_code")
	AttrResult     = attribute.Key("result")
	AttrLockKind   = attribute.Key("lock.kind")
	AttrViolation  = attribute.Key("lock.violation")
	AttrCoroutine  = attribute.Key("coroutine.name")
	AttrFinalize   = attribute.Key("coroutine.finalize")
)

var (
	errUnsupportedExporter = errors.New("unsupported exporter")
	errBadEndpoint         = errors.New("otlp exporter needs a collector URL")
)

// Metrics holds pre-registered OpenTelemetry metric instruments.
type Metrics struct {
	ServerRequestDuration metric.Float64Histogram
	ServerRequestTotal    metric.Int64Counter

	LockWaitDuration metric.Float64Histogram
	LockHoldDuration metric.Float64Histogram
	LockViolations   metric.Int64Counter

	CoroutineSpawned  metric.Int64Counter
	CoroutineActive   metric.Int64UpDownCounter
	CoroutineDuration metric.Float64Histogram
}

// InitTracer installs a batching TracerProvider and the W3C trace context
// and baggage propagators as the globals. The caller shuts it down.
func InitTracer(ctx context.Context, serviceName, exporter, endpoint string) (*sdktrace.TracerProvider, error) {
	res, err := newResource(serviceName)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	spanExporter, err := newSpanExporter(ctx, exporter, endpoint)
	if err != nil {
		return nil, fmt.Errorf("creating span exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// InitMeter installs a periodically exporting MeterProvider as the global.
// The caller shuts it down.
func InitMeter(ctx context.Context, serviceName, exporter, endpoint string) (*sdkmetric.MeterProvider, error) {
	res, err := newResource(serviceName)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	metricExporter, err := newMetricExporter(ctx, exporter, endpoint)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

// NewMetrics creates and registers all metric instruments using the given
// MeterProvider. The serviceName is attached to the meter as an
// instrumentation attribute so dashboards can tell daemons apart.
func NewMetrics(mp metric.MeterProvider, serviceName string) (*Metrics, error) {
	meter := mp.Meter(instrumentationScope,
		metric.WithInstrumentationAttributes(semconv.ServiceName(serviceName)),
	)

	var (
		m    Metrics
		errs []error
	)

	newHistogram := func(name, desc, unit string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			errs = append(errs, fmt.Errorf("creating %s: %w", name, err))
		}
		return h
	}
	newCounter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			errs = append(errs, fmt.Errorf("creating %s: %w", name, err))
		}
		return c
	}

	m.ServerRequestDuration = newHistogram("http.server.request.duration",
		"Duration of incoming admin HTTP requests", "s")
	m.ServerRequestTotal = newCounter("http.server.request.total",
		"Total number of incoming admin HTTP requests", "{request}")

	m.LockWaitDuration = newHistogram("locking.acquire.wait",
		"Time spent blocked acquiring a lock domain", "s")
	m.LockHoldDuration = newHistogram("locking.hold",
		"Time a lock domain was held before release", "s")
	m.LockViolations = newCounter("locking.violation.total",
		"Lock invariant violations reported before abort", "{violation}")

	m.CoroutineSpawned = newCounter("coroutine.spawn.total",
		"Coroutines started", "{coroutine}")
	m.CoroutineDuration = newHistogram("coroutine.run.duration",
		"Time from coroutine start until its entry returned", "s")

	active, err := meter.Int64UpDownCounter("coroutine.active",
		metric.WithDescription("Coroutines whose entry has not returned yet"),
		metric.WithUnit("{coroutine}"),
	)
	if err != nil {
		errs = append(errs, fmt.Errorf("creating coroutine.active: %w", err))
	}
	m.CoroutineActive = active

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordServerRequest records one admin HTTP request.
func (m *Metrics) RecordServerRequest(ctx context.Context, method string, status int, d time.Duration) {
	if m == nil {
		return
	}

	result := "success"
	if status >= 400 {
		result = "error"
	}

	attrs := metric.WithAttributes(
		AttrHTTPMethod.String(method),
		AttrHTTPStatus.Int(status),
		AttrResult.String(result),
	)
	m.ServerRequestDuration.Record(ctx, d.Seconds(), attrs)
	m.ServerRequestTotal.Add(ctx, 1, attrs)
}

// RecordLockWait records how long an acquire blocked.
func (m *Metrics) RecordLockWait(ctx context.Context, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.LockWaitDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrLockKind.String(kind)))
}

// RecordLockHold records how long a domain was held.
func (m *Metrics) RecordLockHold(ctx context.Context, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.LockHoldDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrLockKind.String(kind)))
}

// RecordLockViolation counts a violation about to abort the process.
func (m *Metrics) RecordLockViolation(ctx context.Context, violation string) {
	if m == nil {
		return
	}
	m.LockViolations.Add(ctx, 1, metric.WithAttributes(AttrViolation.String(violation)))
}

// RecordCoroutineStart records a coroutine entering its entry function.
func (m *Metrics) RecordCoroutineStart(ctx context.Context, name string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrCoroutine.String(name))
	m.CoroutineSpawned.Add(ctx, 1, attrs)
	m.CoroutineActive.Add(ctx, 1, attrs)
}

// RecordCoroutineEnd records a coroutine's entry function returning.
func (m *Metrics) RecordCoroutineEnd(ctx context.Context, name string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrCoroutine.String(name))
	m.CoroutineActive.Add(ctx, -1, attrs)
	m.CoroutineDuration.Record(ctx, d.Seconds(), attrs)
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

// The OTLP exporters take the collector URL whole; an http scheme selects a
// plaintext connection.
func newSpanExporter(ctx context.Context, exporter, endpoint string) (sdktrace.SpanExporter, error) {
	if err := checkExporter(exporter, endpoint); err != nil {
		return nil, err
	}
	if exporter == ExporterStdout {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
}

func newMetricExporter(ctx context.Context, exporter, endpoint string) (sdkmetric.Exporter, error) {
	if err := checkExporter(exporter, endpoint); err != nil {
		return nil, err
	}
	if exporter == ExporterStdout {
		return stdoutmetric.New()
	}
	return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(endpoint))
}

func checkExporter(exporter, endpoint string) error {
	switch exporter {
	case ExporterStdout:
		return nil
	case ExporterOTLP:
		u, err := url.Parse(endpoint)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: %q", errBadEndpoint, endpoint)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnsupportedExporter, exporter)
	}
}
