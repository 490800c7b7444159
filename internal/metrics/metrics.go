// Package metrics exposes Prometheus collectors for the dashboard backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "missionctl",
		Name:      "agent_invocations_total",
		Help:      "Agent CLI invocations by outcome.",
	}, []string{"result"})

	invocationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "missionctl",
		Name:      "agent_invocation_duration_seconds",
		Help:      "Wall-clock duration of agent CLI invocations.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "missionctl",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "code"})
)

// ObserveInvocation records one agent invocation outcome.
func ObserveInvocation(result string, duration time.Duration) {
	invocationsTotal.WithLabelValues(result).Inc()
	invocationDuration.Observe(duration.Seconds())
}

// ObserveRequest records one handled HTTP request.
func ObserveRequest(route, code string) {
	httpRequestsTotal.WithLabelValues(route, code).Inc()
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
