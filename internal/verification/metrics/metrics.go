package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	ExtractionsAccepted prometheus.Counter
	FieldsVerified      prometheus.Counter
	ReviewsConfirmed    prometheus.Counter
	ModulesInvalidated  prometheus.Counter
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		ExtractionsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_extractions_accepted_total",
			Help: "Total number of extraction result sets accepted",
		}),
		FieldsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_fields_verified_total",
			Help: "Total number of field verification updates",
		}),
		ReviewsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_reviews_confirmed_total",
			Help: "Total number of module reviews confirmed",
		}),
		ModulesInvalidated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_modules_invalidated_total",
			Help: "Total number of module invalidations raised via bindings",
		}),
	}
}

func (m *Metrics) IncrementExtractionsAccepted() { m.ExtractionsAccepted.Inc() }

func (m *Metrics) IncrementFieldsVerified() { m.FieldsVerified.Inc() }

func (m *Metrics) IncrementReviewsConfirmed() { m.ReviewsConfirmed.Inc() }

// AddModulesInvalidated records n invalidations from one binding fan-out.
func (m *Metrics) AddModulesInvalidated(n int) {
	if n > 0 {
		m.ModulesInvalidated.Add(float64(n))
	}
}
