package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the node control plane
var (
	agentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perch_agent_requests_total",
			Help: "Outbound requests to node agents, by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	agentRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "perch_agent_request_duration_seconds",
			Help:    "Latency of outbound agent requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	CallbacksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perch_agent_callbacks_total",
			Help: "Inbound agent callbacks, by kind and result",
		},
		[]string{"kind", "result"},
	)

	ActivityEntriesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "perch_activity_entries_processed_total",
			Help: "Activity entries persisted from agent batches",
		},
	)

	ActivityEntriesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "perch_activity_entries_rejected_total",
			Help: "Activity entries rejected during batch ingestion",
		},
	)

	TransfersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "perch_transfers_active",
			Help: "Server transfers currently pending or in progress",
		},
	)
)

// ObserveAgentRequest records one outbound agent call.
func ObserveAgentRequest(method string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	agentRequests.WithLabelValues(method, outcome).Inc()
	agentRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
