package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ticketdesk"

// Metrics holds the service collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	complaintsCreated  prometheus.Counter
	referenceConflicts prometheus.Counter
	statusTransitions  *prometheus.CounterVec

	resetTokensIssued prometheus.Counter
	resetTokensSwept  prometheus.Counter
	resetsCompleted   prometheus.Counter

	notifications   *prometheus.CounterVec
	notifyQueueSize prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		complaintsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "complaints_created_total",
			Help:      "Complaints submitted.",
		}),
		referenceConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_conflicts_total",
			Help:      "Reference allocations retried after a unique violation.",
		}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Complaint status transitions applied.",
		}, []string{"from", "to"}),
		resetTokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reset_tokens_issued_total",
			Help:      "Password reset tokens issued.",
		}),
		resetTokensSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reset_tokens_swept_total",
			Help:      "Expired password reset tokens removed.",
		}),
		resetsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_completed_total",
			Help:      "Password resets completed with a valid token.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification jobs by outcome.",
		}, []string{"result"}),
		notifyQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notify_queue_depth",
			Help:      "Notification jobs waiting to be sent.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.complaintsCreated, m.referenceConflicts, m.statusTransitions,
		m.resetTokensIssued, m.resetTokensSwept, m.resetsCompleted,
		m.notifications, m.notifyQueueSize,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records request count, latency and in-flight requests labelled by chi route pattern
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}

		m.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(labels...).Inc()
	})
}

func (m *Metrics) ComplaintCreated() {
	if m != nil {
		m.complaintsCreated.Inc()
	}
}

func (m *Metrics) ReferenceConflict() {
	if m != nil {
		m.referenceConflicts.Inc()
	}
}

func (m *Metrics) StatusTransition(from, to string) {
	if m != nil {
		m.statusTransitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) ResetTokenIssued() {
	if m != nil {
		m.resetTokensIssued.Inc()
	}
}

func (m *Metrics) ResetTokensSwept(n int64) {
	if m != nil && n > 0 {
		m.resetTokensSwept.Add(float64(n))
	}
}

func (m *Metrics) PasswordResetCompleted() {
	if m != nil {
		m.resetsCompleted.Inc()
	}
}

// Notification counts a finished notification job; result is sent, failed or dropped
func (m *Metrics) Notification(result string) {
	if m != nil {
		m.notifications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) NotifyQueueDepth(n int) {
	if m != nil {
		m.notifyQueueSize.Set(float64(n))
	}
}
