package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Pipeline metrics
	DocumentsProcessed prometheus.Counter
	DocumentsFailed    prometheus.Counter
	DuplicateUploads   prometheus.Counter
	PipelineDuration   prometheus.Histogram

	// Reconciliation metrics
	ObservationsUpserted *prometheus.CounterVec
	EntitiesResolved     *prometheus.CounterVec

	// Collaborator metrics
	CollaboratorTokens *prometheus.CounterVec
	CollaboratorErrors *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		DocumentsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Total number of documents fully processed",
		}),
		DocumentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_failed_total",
			Help:      "Total number of document pipeline runs that aborted",
		}),
		DuplicateUploads: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_uploads_total",
			Help:      "Total number of uploads short-circuited by fingerprint match",
		}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent running the full per-document pipeline",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ObservationsUpserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_upserted_total",
			Help:      "Observations written, partitioned by insert vs update",
		}, []string{"outcome"}),
		EntitiesResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_resolved_total",
			Help:      "Resolver decisions, partitioned by entity and outcome",
		}, []string{"entity", "outcome"}),
		CollaboratorTokens: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_tokens_total",
			Help:      "Token usage per collaborator model and direction",
		}, []string{"model", "direction"}),
		CollaboratorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Failed collaborator calls per operation",
		}, []string{"operation"}),
	}
}
