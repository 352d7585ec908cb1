package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTopologyMetrics() {
	r.TopologyNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "patchboard_topology_nodes_total",
			Help: "Current number of nodes in the graph",
		},
	)

	r.TopologyEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "patchboard_topology_edges_total",
			Help: "Current number of resolved edges in the graph",
		},
	)

	r.TopologyOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchboard_topology_operations_total",
			Help: "Total number of topology mutations",
		},
		[]string{"operation", "status"},
	)

	r.TopologyOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "patchboard_topology_operation_duration_seconds",
			Help:    "Topology mutation duration in seconds",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
		},
		[]string{"operation"},
	)

	r.ConnectionFailuresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchboard_topology_connection_failures_total",
			Help: "Edge resolution failures by reason",
		},
		[]string{"reason"},
	)

	r.DraftGesturesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchboard_topology_draft_gestures_total",
			Help: "Connection draft gestures by outcome",
		},
		[]string{"outcome"},
	)
}
