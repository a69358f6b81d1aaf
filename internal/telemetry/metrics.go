package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/fivethreefive/legisync/sync"

	// ThrottleMetricsMeterName is the name used for the throttled client meter
	ThrottleMetricsMeterName = "github.com/fivethreefive/legisync/throttle"
)

// SyncMetrics holds the instruments recorded by sync passes
type SyncMetrics struct {
	passDuration metric.Float64Histogram
	records      metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	passDuration, err := meter.Float64Histogram(
		"legisync_sync_pass_duration_seconds",
		metric.WithDescription("Duration of sync passes in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Counter(
		"legisync_records_total",
		metric.WithDescription("Records processed by sync passes, by outcome"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		passDuration: passDuration,
		records:      records,
	}, nil
}

// RecordPassDuration records how long a pass took and whether it completed
func (m *SyncMetrics) RecordPassDuration(ctx context.Context, duration time.Duration, success bool) {
	if m == nil || m.passDuration == nil {
		return
	}
	m.passDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordOutcome counts n records of kind that ended with outcome
func (m *SyncMetrics) RecordOutcome(ctx context.Context, kind, outcome string, n int) {
	if m == nil || m.records == nil || n == 0 {
		return
	}
	m.records.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

// ThrottleMetrics holds the instruments recorded by the throttled client
type ThrottleMetrics struct {
	waitDuration metric.Float64Histogram
	requests     metric.Int64Counter
}

// NewThrottleMetrics creates a new ThrottleMetrics instance with the given meter
// provider. If provider is nil, it returns nil (no-op metrics).
func NewThrottleMetrics(provider metric.MeterProvider) (*ThrottleMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(ThrottleMetricsMeterName)

	waitDuration, err := meter.Float64Histogram(
		"legisync_throttle_wait_seconds",
		metric.WithDescription("Time callers spent blocked on the request quota"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 20, 30, 45, 60),
	)
	if err != nil {
		return nil, err
	}

	requests, err := meter.Int64Counter(
		"legisync_requests_total",
		metric.WithDescription("Outbound requests by target and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &ThrottleMetrics{
		waitDuration: waitDuration,
		requests:     requests,
	}, nil
}

// RecordWait records a quota wait for target
func (m *ThrottleMetrics) RecordWait(ctx context.Context, target string, wait time.Duration) {
	if m == nil || m.waitDuration == nil {
		return
	}
	m.waitDuration.Record(ctx, wait.Seconds(), metric.WithAttributes(attribute.String("target", target)))
}

// RecordRequest counts one request attempt. status is the HTTP status code or
// "error" for transport failures.
func (m *ThrottleMetrics) RecordRequest(ctx context.Context, target, status string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("status", status),
	))
}
