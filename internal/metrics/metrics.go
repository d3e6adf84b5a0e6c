// Package metrics exposes Prometheus instrumentation for the poll loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/button-sensor/internal/logic"
)

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	updates       prometheus.Counter
	edges         *prometheus.CounterVec
	readErrors    prometheus.Counter
	publishErrors prometheus.Counter
	value         prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "button_sensor_updates_total",
			Help: "Debouncer update cycles run.",
		}),
		edges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "button_sensor_edges_total",
			Help: "Debounced edges by direction.",
		}, []string{"edge"}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "button_sensor_read_errors_total",
			Help: "Failed line samples.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "button_sensor_publish_errors_total",
			Help: "MQTT publishes that returned an error.",
		}),
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "button_sensor_value",
			Help: "Debounced pin level (1 high, 0 low).",
		}),
	}

	m.registry.MustRegister(m.updates, m.edges, m.readErrors, m.publishErrors, m.value)
	// Pre-create both series so they export as 0 before the first edge.
	m.edges.WithLabelValues(string(logic.EventRose))
	m.edges.WithLabelValues(string(logic.EventFell))
	return m
}

// ObserveUpdate records one update cycle and the resulting level.
func (m *Metrics) ObserveUpdate(high bool) {
	m.updates.Inc()
	if high {
		m.value.Set(1)
	} else {
		m.value.Set(0)
	}
}

// ObserveEvent counts an edge.
func (m *Metrics) ObserveEvent(e logic.Event) {
	m.edges.WithLabelValues(string(e.Type)).Inc()
}

// ObserveReadError counts a failed sample.
func (m *Metrics) ObserveReadError() {
	m.readErrors.Inc()
}

// ObservePublishError counts a failed publish.
func (m *Metrics) ObservePublishError() {
	m.publishErrors.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
