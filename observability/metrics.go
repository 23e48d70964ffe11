package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus-compatible counters/gauges/histograms for
// node and workflow execution. All metrics are namespaced "nodeforge_".
type Metrics struct {
	nodesInflight     *prometheus.GaugeVec
	nodeLatency       *prometheus.HistogramVec
	nodeFailures      *prometheus.CounterVec
	workflowDuration  *prometheus.HistogramVec
	workflowsInflight prometheus.Gauge

	enabled bool
}

// NewMetrics registers and returns the metrics collector against registry
// (prometheus.DefaultRegisterer if nil).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,
		nodesInflight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nodeforge",
			Name:      "nodes_inflight",
			Help:      "Number of nodes currently executing, by workflow",
		}, []string{"workflow_id"}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodeforge",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"workflow_id", "node_type", "status"}),
		nodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodeforge",
			Name:      "node_failures_total",
			Help:      "Cumulative node execution failures by phase",
		}, []string{"workflow_id", "node_type", "phase"}),
		workflowDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodeforge",
			Name:      "workflow_duration_ms",
			Help:      "Total workflow execution duration in milliseconds",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"workflow_id", "status"}),
		workflowsInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nodeforge",
			Name:      "workflows_inflight",
			Help:      "Number of workflow runs currently executing",
		}),
	}
}

func (m *Metrics) NodeStarted(workflowID string) {
	if !m.enabled {
		return
	}
	m.nodesInflight.WithLabelValues(workflowID).Inc()
}

func (m *Metrics) NodeFinished(workflowID, nodeType, status string, latency time.Duration) {
	if !m.enabled {
		return
	}
	m.nodesInflight.WithLabelValues(workflowID).Dec()
	m.nodeLatency.WithLabelValues(workflowID, nodeType, status).Observe(float64(latency.Milliseconds()))
}

func (m *Metrics) NodeFailure(workflowID, nodeType, phase string) {
	if !m.enabled {
		return
	}
	m.nodeFailures.WithLabelValues(workflowID, nodeType, phase).Inc()
}

func (m *Metrics) WorkflowStarted() {
	if !m.enabled {
		return
	}
	m.workflowsInflight.Inc()
}

func (m *Metrics) WorkflowFinished(workflowID, status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.workflowsInflight.Dec()
	m.workflowDuration.WithLabelValues(workflowID, status).Observe(float64(duration.Milliseconds()))
}
