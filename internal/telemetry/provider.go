package telemetry

import (
	"context"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const meterName = "github.com/hoanghonghuy/commitbot"

// Recorder owns an in-process meter provider whose data is read back at the end of a run.
type Recorder struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	Metrics  *Metrics
}

// Summary is the aggregated view of one run's backend traffic.
type Summary struct {
	Requests       int64
	Errors         int64
	TotalSeconds   float64
	InflightNow    int64
	RequestsByMode map[string]int64
}

// NewRecorder builds a meter provider with a manual reader.
func NewRecorder() (*Recorder, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(provider.Meter(meterName))
	if err != nil {
		return nil, err
	}

	return &Recorder{provider: provider, reader: reader, Metrics: m}, nil
}

// Summary collects the current metric state.
func (r *Recorder) Summary(ctx context.Context) (Summary, error) {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return Summary{}, fmt.Errorf("collect metrics: %w", err)
	}

	sum := Summary{RequestsByMode: map[string]int64{}}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case metricRequestsTotal:
				if data, ok := m.Data.(metricdata.Sum[int64]); ok {
					for _, dp := range data.DataPoints {
						sum.Requests += dp.Value
						if mode, ok := dp.Attributes.Value(attrMode); ok {
							sum.RequestsByMode[mode.AsString()] += dp.Value
						}
					}
				}
			case metricErrorsTotal:
				if data, ok := m.Data.(metricdata.Sum[int64]); ok {
					for _, dp := range data.DataPoints {
						sum.Errors += dp.Value
					}
				}
			case metricInflightRequests:
				if data, ok := m.Data.(metricdata.Sum[int64]); ok {
					for _, dp := range data.DataPoints {
						sum.InflightNow += dp.Value
					}
				}
			case metricRequestDuration:
				if data, ok := m.Data.(metricdata.Histogram[float64]); ok {
					for _, dp := range data.DataPoints {
						sum.TotalSeconds += dp.Sum
					}
				}
			}
		}
	}
	return sum, nil
}

// Shutdown releases the meter provider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if err := r.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}
