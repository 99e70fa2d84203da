package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records analytics pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordAcquire records a builder acquisition from a scope.
	RecordAcquire(ctx context.Context, screen string)

	// RecordDelivery records a sink hand-off with its duration and error status.
	RecordDelivery(ctx context.Context, action string, duration time.Duration, err error)

	// RecordDrop records an event discarded before reaching the sink.
	RecordDrop(ctx context.Context, reason string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	buildersAcquired metric.Int64Counter
	eventsDelivered  metric.Int64Counter
	eventsDropped    metric.Int64Counter
	deliveryErrors   metric.Int64Counter
	deliveryLatency  metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("analytics")

	buildersAcquired, err := meter.Int64Counter("analytics.builders.acquired",
		metric.WithDescription("Number of builders acquired from a scope"),
	)
	if err != nil {
		return nil, err
	}

	eventsDelivered, err := meter.Int64Counter("analytics.events.delivered",
		metric.WithDescription("Number of events handed to the sink"),
	)
	if err != nil {
		return nil, err
	}

	eventsDropped, err := meter.Int64Counter("analytics.events.dropped",
		metric.WithDescription("Number of events discarded before the sink"),
	)
	if err != nil {
		return nil, err
	}

	deliveryErrors, err := meter.Int64Counter("analytics.delivery.errors",
		metric.WithDescription("Number of sink delivery failures"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram("analytics.delivery.latency_ms",
		metric.WithDescription("Sink delivery latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		buildersAcquired: buildersAcquired,
		eventsDelivered:  eventsDelivered,
		eventsDropped:    eventsDropped,
		deliveryErrors:   deliveryErrors,
		deliveryLatency:  deliveryLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordAcquire records a builder acquisition.
func (m *otelMetrics) RecordAcquire(ctx context.Context, screen string) {
	m.buildersAcquired.Add(ctx, 1, metric.WithAttributes(
		attribute.String("screen", screen),
	))
}

// RecordDelivery records a sink hand-off.
func (m *otelMetrics) RecordDelivery(ctx context.Context, action string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("action", action),
	}

	m.eventsDelivered.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.deliveryLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.deliveryErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordDrop records a discarded event.
func (m *otelMetrics) RecordDrop(ctx context.Context, reason string) {
	m.eventsDropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
