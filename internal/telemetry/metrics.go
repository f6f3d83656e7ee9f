// Package telemetry records rate, error and duration metrics for model backend calls.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	metricRequestsTotal    = "commitbot.backend.requests.total"
	metricRequestDuration  = "commitbot.backend.request.duration.seconds"
	metricErrorsTotal      = "commitbot.backend.errors.total"
	metricInflightRequests = "commitbot.backend.inflight.requests"

	attrBackend = "backend"
	attrMode    = "mode"
	attrStatus  = "status"

	// StatusOK and StatusError are the values of the status attribute.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers quick local models up to the transport timeout.
var durationBucketBoundaries = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90}

// Metrics holds the instruments for backend calls.
type Metrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewMetrics creates the instruments from the given meter.
func NewMetrics(mt metric.Meter) (*Metrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of backend requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Backend request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed backend requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Number of in-flight backend requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &Metrics{
		requestsTotal:    reqTotal,
		requestDuration:  reqDuration,
		errorsTotal:      errTotal,
		inflightRequests: inflight,
	}, nil
}

// Discard returns instruments backed by a no-op meter.
func Discard() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("commitbot"))
	return m
}

// Start marks a request as in flight and returns a function that records its outcome.
func (m *Metrics) Start(ctx context.Context, backend, mode string) func(err error) {
	inflightAttrs := metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrMode, mode),
	)
	m.inflightRequests.Add(ctx, 1, inflightAttrs)
	started := time.Now()

	return func(err error) {
		m.inflightRequests.Add(ctx, -1, inflightAttrs)

		status := StatusOK
		if err != nil {
			status = StatusError
		}
		attrs := metric.WithAttributes(
			attribute.String(attrBackend, backend),
			attribute.String(attrMode, mode),
			attribute.String(attrStatus, status),
		)
		m.requestsTotal.Add(ctx, 1, attrs)
		m.requestDuration.Record(ctx, time.Since(started).Seconds(), attrs)
		if err != nil {
			m.errorsTotal.Add(ctx, 1, attrs)
		}
	}
}
