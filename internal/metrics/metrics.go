// Package metrics owns the Prometheus collectors for topology operations.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"subway/internal/domain"
)

const (
	metricPrefix = "subway_"

	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds the service's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	occConflicts prometheus.Counter
	lines        prometheus.Gauge
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "topology_operations_total",
				Help: "Total topology operations by operation and result",
			},
			[]string{"op", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "topology_operation_duration_seconds",
				Help:    "Topology operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		occConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "occ_conflicts_total",
				Help: "Section writes rejected by the line version check",
			},
		),
		lines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "lines",
				Help: "Number of lines currently stored",
			},
		),
	}

	m.registry.MustRegister(
		m.operations,
		m.latency,
		m.occConflicts,
		m.lines,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOperation records one operation's outcome and latency. Domain
// failures are labelled with their kind.
func (m *Metrics) ObserveOperation(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// IncConflict counts one optimistic concurrency conflict
func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.occConflicts.Inc()
}

// SetLines sets the line gauge
func (m *Metrics) SetLines(n int) {
	if m == nil {
		return
	}
	m.lines.Set(float64(n))
}

// AddLines moves the line gauge by delta
func (m *Metrics) AddLines(delta int) {
	if m == nil {
		return
	}
	m.lines.Add(float64(delta))
}

func resultLabel(err error) string {
	if err == nil {
		return resultSuccess
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return resultError
}
