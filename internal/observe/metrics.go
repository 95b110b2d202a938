// Package observe provides application-wide observability primitives for
// verivote: OpenTelemetry metrics, request tracing, structured logging
// helpers, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the standard /metrics endpoint. All recording helpers are safe
// to call on a nil *Metrics, so components can treat instrumentation as
// optional.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all verivote metrics.
const meterName = "github.com/verivote/verivote"

// Metrics holds all OpenTelemetry metric instruments for the application.
// The underlying OTel types handle their own synchronisation.
type Metrics struct {
	// IdentifyDuration tracks biometric identification latency. Recorded with
	// attribute.String("modality", "face"|"voice").
	IdentifyDuration metric.Float64Histogram

	// LedgerDuration tracks ledger round-trip latency. Recorded with
	// attribute.String("op", "check"|"cast").
	LedgerDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Recorded with
	// attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram

	// Enrollments counts enrollment attempts. Recorded with
	// attribute.String("modality", ...), attribute.String("status", "ok"|"error").
	Enrollments metric.Int64Counter

	// Identifications counts identification attempts. Recorded with
	// attribute.String("modality", ...), attribute.Bool("matched", ...).
	Identifications metric.Int64Counter

	// Votes counts vote attempts at the gate. Recorded with
	// attribute.String("status", "cast"|"already_voted"|"error").
	Votes metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets cover ledger transactions, which wait for chain inclusion.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.IdentifyDuration, err = m.Float64Histogram("verivote.identify.duration",
		metric.WithDescription("Latency of biometric identification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LedgerDuration, err = m.Float64Histogram("verivote.ledger.duration",
		metric.WithDescription("Latency of vote ledger round-trips."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("verivote.http.request.duration",
		metric.WithDescription("Latency of HTTP request handling."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Enrollments, err = m.Int64Counter("verivote.enrollments",
		metric.WithDescription("Count of biometric enrollment attempts."),
	); err != nil {
		return nil, err
	}
	if met.Identifications, err = m.Int64Counter("verivote.identifications",
		metric.WithDescription("Count of biometric identification attempts."),
	); err != nil {
		return nil, err
	}
	if met.Votes, err = m.Int64Counter("verivote.votes",
		metric.WithDescription("Count of vote attempts at the ledger gate."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// CountEnrollment records one enrollment attempt. Safe on a nil receiver.
func (m *Metrics) CountEnrollment(ctx context.Context, modality, status string) {
	if m == nil {
		return
	}
	m.Enrollments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("modality", modality),
		attribute.String("status", status),
	))
}

// RecordIdentify records one identification attempt and its latency.
// Safe on a nil receiver.
func (m *Metrics) RecordIdentify(ctx context.Context, modality string, d time.Duration, matched bool) {
	if m == nil {
		return
	}
	m.IdentifyDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("modality", modality),
	))
	m.Identifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("modality", modality),
		attribute.Bool("matched", matched),
	))
}

// RecordLedger records one ledger round-trip. Safe on a nil receiver.
func (m *Metrics) RecordLedger(ctx context.Context, op string, d time.Duration) {
	if m == nil {
		return
	}
	m.LedgerDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("op", op),
	))
}

// CountVote records the outcome of one vote attempt. Safe on a nil receiver.
func (m *Metrics) CountVote(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Votes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}
