// Package metrics exposes Prometheus counters for the refresh coordinator,
// the route guard and upstream calls. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authfront"

// Refresh outcomes.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshShared  = "shared"
)

type Metrics struct {
	registry       *prometheus.Registry
	refreshTotal   *prometheus.CounterVec
	guardDecisions *prometheus.CounterVec
	upstream       *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions by route class and action.",
		}, []string{"class", "action"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API call latency by method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	m.registry.MustRegister(m.refreshTotal, m.guardDecisions, m.upstream)
	return m
}

func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GuardDecision(class, action string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(class, action).Inc()
}

// Upstream records one API call; status 0 means no response arrived.
func (m *Metrics) Upstream(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry (primarily for testing).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
