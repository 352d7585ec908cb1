package metrics

import (
	"time"
)

// RecordTopologyOperation records a topology mutation with its duration
func (r *Registry) RecordTopologyOperation(operation, status string, duration time.Duration) {
	r.TopologyOperationsTotal.WithLabelValues(operation, status).Inc()
	r.TopologyOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetTopologySize updates the node and edge gauges
func (r *Registry) SetTopologySize(nodes, edges int) {
	r.TopologyNodesTotal.Set(float64(nodes))
	r.TopologyEdgesTotal.Set(float64(edges))
}

// RecordConnectionFailure records a failed edge resolution
func (r *Registry) RecordConnectionFailure(reason string) {
	r.ConnectionFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordDraftGesture records the outcome of a connection draft
func (r *Registry) RecordDraftGesture(outcome string) {
	r.DraftGesturesTotal.WithLabelValues(outcome).Inc()
}

// RecordLoadEntity records a processed entity during a document load
func (r *Registry) RecordLoadEntity(entity, outcome string) {
	r.LoadEntitiesTotal.WithLabelValues(entity, outcome).Inc()
}

// RecordDocumentSave records a document save attempt
func (r *Registry) RecordDocumentSave(trigger, status string, duration time.Duration) {
	r.DocumentSavesTotal.WithLabelValues(trigger, status).Inc()
	r.DocumentSaveDuration.Observe(duration.Seconds())
}

// RecordArchiveRevision records a revision appended to the archive
func (r *Registry) RecordArchiveRevision(rawBytes, compressedBytes int) {
	r.ArchiveRevisionsTotal.Inc()
	r.ArchiveBytesTotal.WithLabelValues("raw").Add(float64(rawBytes))
	r.ArchiveBytesTotal.WithLabelValues("compressed").Add(float64(compressedBytes))
}

// RecordWatcherReload records a reload triggered by the file watcher
func (r *Registry) RecordWatcherReload() {
	r.WatcherReloadsTotal.Inc()
}
