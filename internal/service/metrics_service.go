package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the staffing
// core: HTTP traffic plus domain counters for week generation, rotation,
// reconciliation and radar verdicts.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	weeksGenerated   prometheus.Counter
	rotationsApplied prometheus.Counter
	seatsReconciled  prometheus.Counter
	radarStatuses    *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	weeksGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_weeks_generated_total",
		Help: "Total schedule weeks materialized",
	})

	rotationsApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rotation_applications_total",
		Help: "Total first-out rotation applications",
	})

	seatsReconciled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seat_records_reconciled_total",
		Help: "Total duplicate or blank seat records removed by reconciliation",
	})

	radarStatuses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fragility_radar_statuses_total",
		Help: "Radar verdicts per status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, weeksGenerated, rotationsApplied, seatsReconciled, radarStatuses, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		weeksGenerated:   weeksGenerated,
		rotationsApplied: rotationsApplied,
		seatsReconciled:  seatsReconciled,
		radarStatuses:    radarStatuses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": httpStatusLabel(status)}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// ObserveWeekGenerated counts a materialized week.
func (m *MetricsService) ObserveWeekGenerated() {
	if m == nil {
		return
	}
	m.weeksGenerated.Inc()
}

// ObserveRotationApplied counts a first-out application.
func (m *MetricsService) ObserveRotationApplied() {
	if m == nil {
		return
	}
	m.rotationsApplied.Inc()
}

// ObserveReconcilePass counts records removed by a reconciliation pass.
func (m *MetricsService) ObserveReconcilePass(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.seatsReconciled.Add(float64(removed))
}

// ObserveRadarStatus counts one radar verdict.
func (m *MetricsService) ObserveRadarStatus(status string) {
	if m == nil {
		return
	}
	m.radarStatuses.WithLabelValues(status).Inc()
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
