package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics interface {
	IncCycles(result string)
	ObserveCycleDuration(d time.Duration)
	IncEvents(kind string)
	IncNotifications(result string)
	SetTrackedLocations(n int)
	Handler() http.Handler
}

type PrometheusMetrics struct {
	registry         *prometheus.Registry
	cycles           *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	events           *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	trackedLocations prometheus.Gauge
}

// NewMetrics returns Prometheus-backed metrics on a private registry, or a
// no-op implementation when disabled.
func NewMetrics(enabled bool) Metrics {
	if !enabled {
		return noopMetrics{}
	}

	reg := prometheus.NewRegistry()
	m := &PrometheusMetrics{
		registry: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_monitor_cycles_total",
			Help: "Check cycles by result",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "appointment_monitor_cycle_duration_seconds",
			Help:    "Duration of a check cycle in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_monitor_events_total",
			Help: "Classified location events by kind",
		}, []string{"kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_monitor_notifications_total",
			Help: "Notification deliveries by result",
		}, []string{"result"}),
		trackedLocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "appointment_monitor_tracked_locations",
			Help: "Locations with a recorded appointment",
		}),
	}
	reg.MustRegister(m.cycles, m.cycleDuration, m.events, m.notifications, m.trackedLocations)
	return m
}

func (m *PrometheusMetrics) IncCycles(result string) {
	m.cycles.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) ObserveCycleDuration(d time.Duration) {
	m.cycleDuration.Observe(d.Seconds())
}

func (m *PrometheusMetrics) IncEvents(kind string) {
	m.events.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) IncNotifications(result string) {
	m.notifications.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) SetTrackedLocations(n int) {
	m.trackedLocations.Set(float64(n))
}

func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// noopMetrics is used when metrics are disabled.
type noopMetrics struct{}

func (noopMetrics) IncCycles(string)                   {}
func (noopMetrics) ObserveCycleDuration(time.Duration) {}
func (noopMetrics) IncEvents(string)                   {}
func (noopMetrics) IncNotifications(string)            {}
func (noopMetrics) SetTrackedLocations(int)            {}
func (noopMetrics) Handler() http.Handler              { return http.NotFoundHandler() }
