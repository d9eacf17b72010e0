// Package metrics provides Prometheus metrics for the identity and token flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IdentityCacheLookups counts warm cache lookups by result (hit, miss).
	IdentityCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sonar",
			Name:      "identity_cache_lookups_total",
			Help:      "Warm identity cache lookups by result",
		},
		[]string{"result"},
	)

	// UsersCreated counts user records created in the durable store.
	UsersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sonar",
			Name:      "users_created_total",
			Help:      "User records created on first sight of an email",
		},
	)

	// UpstreamRequests counts vendor API calls by operation and outcome.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sonar",
			Name:      "upstream_requests_total",
			Help:      "Airbyte API requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// UpstreamDuration measures vendor API latency.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sonar",
			Name:      "upstream_request_duration_seconds",
			Help:      "Airbyte API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// RecordCacheLookup records a warm cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		IdentityCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	IdentityCacheLookups.WithLabelValues("miss").Inc()
}

// RecordUpstream records one vendor API call.
func RecordUpstream(operation, outcome string, seconds float64) {
	UpstreamRequests.WithLabelValues(operation, outcome).Inc()
	UpstreamDuration.WithLabelValues(operation).Observe(seconds)
}
