package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all Prometheus metrics for the topology engine
type Registry struct {
	// Topology Metrics
	TopologyNodesTotal        prometheus.Gauge
	TopologyEdgesTotal        prometheus.Gauge
	TopologyOperationsTotal   *prometheus.CounterVec
	TopologyOperationDuration *prometheus.HistogramVec
	ConnectionFailuresTotal   *prometheus.CounterVec
	DraftGesturesTotal        *prometheus.CounterVec

	// Document Metrics
	LoadEntitiesTotal     *prometheus.CounterVec
	DocumentSavesTotal    *prometheus.CounterVec
	DocumentSaveDuration  prometheus.Histogram
	ArchiveRevisionsTotal prometheus.Counter
	ArchiveBytesTotal     *prometheus.CounterVec
	WatcherReloadsTotal   prometheus.Counter

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initTopologyMetrics()
	r.initDocumentMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
