// Package metrics registers the Prometheus collectors exposed on
// /metrics (SPEC_FULL.md §B.3). This is ambient observability carried
// regardless of spec.md's silence on it, the way the teacher wires
// prometheus/client_golang elsewhere in its stack.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the HTTP layer and domain services
// report to.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuditAppendDuration prometheus.Histogram
	SignerCommitTotal   *prometheus.CounterVec
	ChainVerifyTotal    *prometheus.CounterVec
}

// New registers every collector against a fresh registry and returns
// both the Metrics handle and an http.Handler for the /metrics route.
func New() (*Metrics, http.Handler) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests, labeled by route, method and status text.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		AuditAppendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audit_append_duration_seconds",
			Help:    "Latency of a single audit chain Append call.",
			Buckets: prometheus.DefBuckets,
		}),
		SignerCommitTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signer_commit_total",
			Help: "Signer commit attempts, labeled by outcome.",
		}, []string{"outcome"}),
		ChainVerifyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chain_verify_total",
			Help: "Chain verification calls, labeled by result.",
		}, []string{"result"}),
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler
}
