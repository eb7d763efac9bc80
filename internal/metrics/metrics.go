// Package metrics exposes Prometheus collectors for deliveries, tier
// notifications and escalation sessions.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guardian"

// Delivery results
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics holds every collector on its own registry, so several instances
// can coexist in one process (tests, embedded servers).
//
// All methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	deliveries        *prometheus.CounterVec
	tierNotifications *prometheus.CounterVec
	contactsReached   prometheus.Counter
	dispatchDuration  prometheus.Histogram
	sessionsEnded     *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		deliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Channel send attempts by channel and result",
			},
			[]string{"channel", "result"},
		),
		tierNotifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tier_notifications_total",
				Help:      "Tier notification requests handled, by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		contactsReached: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "contacts_reached_total",
				Help:      "Contacts reached on at least one channel",
			},
		),
		dispatchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Wall time of one tier fan-out",
				Buckets:   prometheus.DefBuckets,
			},
		),
		sessionsEnded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_ended_total",
				Help:      "Escalation sessions by terminal state and reason",
			},
			[]string{"state", "reason"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// Delivery records one channel send attempt.
func (m *Metrics) Delivery(channel, result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel, result).Inc()
}

// TierNotified records a finished tier fan-out. outcome is "ok",
// "empty", "no_contacts" or "error".
func (m *Metrics) TierNotified(tier int, outcome string, reached int, took time.Duration) {
	if m == nil {
		return
	}
	m.tierNotifications.WithLabelValues(strconv.Itoa(tier), outcome).Inc()
	m.contactsReached.Add(float64(reached))
	m.dispatchDuration.Observe(took.Seconds())
}

// SessionEnded records a session reaching a terminal state.
func (m *Metrics) SessionEnded(state, reason string) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(state, reason).Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(took.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
