// Package metrics holds the Prometheus collectors for the auth server on a
// private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipehub"

type Metrics struct {
	registry        *prometheus.Registry
	authOps         *prometheus.CounterVec
	tokenRejections *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Auth service operations by outcome.",
		}, []string{"operation", "result"}),
		tokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_rejections_total",
			Help:      "Tokens that failed verification, by token kind and reason.",
		}, []string{"kind", "reason"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.authOps,
		m.tokenRejections,
		m.httpDuration,
	)
	return m
}

// ObserveAuth counts one auth operation; the result label is the error kind
// or "ok".
func (m *Metrics) ObserveAuth(operation string, err error) {
	m.authOps.WithLabelValues(operation, common.KindName(err)).Inc()
}

func (m *Metrics) TokenRejected(kind, reason string) {
	m.tokenRejections.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
