package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "workmarket"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Status transitions by entity and outcome.",
		},
		[]string{"entity", "from", "to", "outcome"},
	)

	bidAcceptances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bid_acceptances_total",
			Help:      "Bid acceptance attempts by outcome.",
		},
		[]string{"outcome"},
	)

	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected drafts by entity.",
		},
		[]string{"entity"},
	)

	acceptLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bid_accept_duration_seconds",
			Help:      "Time spent accepting a bid, including lock wait.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, grpcRequests, transitions, bidAcceptances, validationFailures, acceptLatency)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint, code string) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

// ObserveTransition counts a status change attempt; outcome is "ok", "rejected" or "conflict".
func ObserveTransition(entity, from, to, outcome string) {
	transitions.WithLabelValues(entity, from, to, outcome).Inc()
}

func IncBidAcceptance(outcome string) {
	bidAcceptances.WithLabelValues(outcome).Inc()
}

func IncValidationFailure(entity string) {
	validationFailures.WithLabelValues(entity).Inc()
}

func ObserveAcceptDuration(seconds float64) {
	acceptLatency.Observe(seconds)
}
