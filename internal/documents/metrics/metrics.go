package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the documents module.
type Metrics struct {
	GroupsCreated    prometheus.Counter
	GroupsDeleted    prometheus.Counter
	PagesMoved       prometheus.Counter
	MergesCompleted  prometheus.Counter
	MutationDuration prometheus.Histogram
}

// New creates a Metrics instance with all documents module metrics
// registered.
func New() *Metrics {
	return &Metrics{
		GroupsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_groups_created_total",
			Help: "Total number of document groups created",
		}),
		GroupsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_groups_deleted_total",
			Help: "Total number of document groups deleted",
		}),
		PagesMoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_pages_moved_total",
			Help: "Total number of page move operations",
		}),
		MergesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_group_merges_total",
			Help: "Total number of group merge operations",
		}),
		MutationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docket_document_mutation_duration_seconds",
			Help:    "Duration of document store mutations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

func (m *Metrics) IncrementGroupsCreated() { m.GroupsCreated.Inc() }

func (m *Metrics) IncrementGroupsDeleted() { m.GroupsDeleted.Inc() }

func (m *Metrics) IncrementPagesMoved() { m.PagesMoved.Inc() }

func (m *Metrics) IncrementMergesCompleted() { m.MergesCompleted.Inc() }

// ObserveMutation records the duration of one store mutation. Call with
// time.Now() at the start of the operation.
func (m *Metrics) ObserveMutation(start time.Time) {
	m.MutationDuration.Observe(time.Since(start).Seconds())
}
