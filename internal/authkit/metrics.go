package authkit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder counts auth events.
type MetricsRecorder interface {
	Increment(event string)
}

// NopMetrics discards all events.
type NopMetrics struct{}

// Increment does nothing.
func (NopMetrics) Increment(event string) {}

// PrometheusMetrics implements MetricsRecorder on a labeled counter vector.
type PrometheusMetrics struct {
	events *prometheus.CounterVec
}

// NewPrometheusMetrics constructs the recorder and registers its collector.
func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "holocron",
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Authentication events by outcome.",
	}, []string{"event"})
	registerer.MustRegister(events)
	return &PrometheusMetrics{events: events}
}

// Increment increases the counter for the given event.
func (metrics *PrometheusMetrics) Increment(event string) {
	metrics.events.WithLabelValues(event).Inc()
}
