package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initDocumentMetrics() {
	r.LoadEntitiesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchboard_document_load_entities_total",
			Help: "Entities processed during document loads",
		},
		[]string{"entity", "outcome"},
	)

	r.DocumentSavesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchboard_document_saves_total",
			Help: "Document save attempts by trigger and status",
		},
		[]string{"trigger", "status"},
	)

	r.DocumentSaveDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "patchboard_document_save_duration_seconds",
			Help:    "Document save duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	r.ArchiveRevisionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "patchboard_archive_revisions_total",
			Help: "Revisions written to the document archive",
		},
	)

	r.ArchiveBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchboard_archive_bytes_total",
			Help: "Bytes written to the document archive by stage",
		},
		[]string{"stage"},
	)

	r.WatcherReloadsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "patchboard_watcher_reloads_total",
			Help: "Graph reloads triggered by file watch events",
		},
	)
}
