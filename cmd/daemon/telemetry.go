package main

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jsamuelsen11/go-daemon-core/internal/platform/config"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/telemetry"
)

// otelProviders owns the trace and metric pipelines. With telemetry off
// every field is nil and metrics recording is a no-op.
type otelProviders struct {
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	metrics *telemetry.Metrics
}

// Shutdown flushes whichever providers are running.
func (o *otelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracer != nil {
		errs = append(errs, o.tracer.Shutdown(ctx))
	}
	if o.meter != nil {
		errs = append(errs, o.meter.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func initTelemetry(ctx context.Context, cfg *config.Config) (*otelProviders, error) {
	o := &otelProviders{}
	t := cfg.Telemetry
	if !t.Enabled {
		return o, nil
	}

	var err error
	if o.tracer, err = telemetry.InitTracer(ctx, t.ServiceName, t.Exporter, t.Endpoint); err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	if o.meter, err = telemetry.InitMeter(ctx, t.ServiceName, t.Exporter, t.Endpoint); err != nil {
		_ = o.Shutdown(ctx)
		return nil, fmt.Errorf("meter: %w", err)
	}
	if o.metrics, err = telemetry.NewMetrics(o.meter, t.ServiceName); err != nil {
		_ = o.Shutdown(ctx)
		return nil, fmt.Errorf("instruments: %w", err)
	}
	return o, nil
}
