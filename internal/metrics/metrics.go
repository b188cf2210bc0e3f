package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RelayMetrics holds all Prometheus metrics for the relay.
type RelayMetrics struct {
	InstallsTotal      *prometheus.CounterVec
	CallbacksTotal     *prometheus.CounterVec
	ExchangeDuration   prometheus.Histogram
	AdminRequestsTotal *prometheus.CounterVec
	MessengerEvents    *prometheus.CounterVec
}

// New registers the relay metrics on reg. Pass prometheus.DefaultRegisterer in
// main and a fresh registry in tests.
func New(reg prometheus.Registerer) *RelayMetrics {
	f := promauto.With(reg)
	return &RelayMetrics{
		InstallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "svario",
			Subsystem: "oauth",
			Name:      "installs_total",
			Help:      "Install requests by outcome.",
		}, []string{"outcome"}), // outcome: redirected, client_error, config_error, upstream_error
		CallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "svario",
			Subsystem: "oauth",
			Name:      "callbacks_total",
			Help:      "OAuth callbacks by outcome.",
		}, []string{"outcome"}), // outcome: stored, client_error, auth_error, config_error, upstream_error
		ExchangeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "svario",
			Subsystem: "oauth",
			Name:      "token_exchange_seconds",
			Help:      "Latency of the code-for-token exchange call.",
			Buckets:   prometheus.DefBuckets,
		}),
		AdminRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "svario",
			Subsystem: "shopify",
			Name:      "admin_requests_total",
			Help:      "Proxied Admin API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		MessengerEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "svario",
			Subsystem: "messenger",
			Name:      "events_total",
			Help:      "Messenger webhook requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

// Noop returns metrics registered on a throwaway registry.
func Noop() *RelayMetrics {
	return New(prometheus.NewRegistry())
}
