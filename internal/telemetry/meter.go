package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("gameinsights.telemetry")

// MeterAPI decorates an inner API, mirroring every ReportCount into an
// otel gauge keyed by the report id. Broken/warning/debug reports pass
// through untouched.
type MeterAPI struct {
	inner API

	mu     *sync.Mutex
	gauges map[string]metric.Int64Gauge
}

func NewMeterAPI(inner API) MeterAPI {
	return MeterAPI{
		inner:  inner,
		mu:     &sync.Mutex{},
		gauges: map[string]metric.Int64Gauge{},
	}
}

func (m MeterAPI) gauge(id string) (metric.Int64Gauge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.gauges[id]
	if ok {
		return g, nil
	}
	g, err := meter.Int64Gauge(id)
	if err != nil {
		return nil, err
	}
	m.gauges[id] = g
	return g, nil
}

func (m MeterAPI) ReportBroken(id string, params ...any) {
	m.inner.ReportBroken(id, params...)
}

func (m MeterAPI) ReportWarning(id string, params ...any) {
	m.inner.ReportWarning(id, params...)
}

func (m MeterAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m MeterAPI) ReportCount(id string, count int64) {
	m.inner.ReportCount(id, count)

	g, err := m.gauge(id)
	if err != nil {
		m.inner.ReportWarning("meter_api.report-count", err, id)
		return
	}
	g.Record(context.Background(), count)
}
