package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	workflowOpsTotal       *prometheus.CounterVec
	workflowConflictsTotal prometheus.Counter
	workflowEventsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		workflowOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_workflow_operations_total",
			Help: "Total number of workflow operations processed.",
		}, []string{"operation", "result"})

		workflowConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_workflow_version_conflicts_total",
			Help: "Total number of optimistic-concurrency conflicts on submissions.",
		})

		workflowEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_workflow_events_emitted_total",
			Help: "Total number of workflow domain events emitted.",
		}, []string{"kind"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			workflowOpsTotal,
			workflowConflictsTotal,
			workflowEventsTotal,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for served requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// WorkflowOperations exposes the counter for workflow operations.
func WorkflowOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowOpsTotal
}

// WorkflowConflicts exposes the counter for version conflicts.
func WorkflowConflicts() prometheus.Counter {
	RegisterMetrics()
	return workflowConflictsTotal
}

// WorkflowEventsEmitted exposes the counter for emitted domain events.
func WorkflowEventsEmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowEventsTotal
}
