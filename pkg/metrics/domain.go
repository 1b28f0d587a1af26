package metrics

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics tracks failure modes that need operator attention: inventory
// compensation that could not be applied, image rollbacks that left orphaned
// blobs, and QuickBooks token refresh outcomes.
type DomainMetrics struct {
	compensationFailures *prometheus.CounterVec
	imageRollbackOrphans prometheus.Counter
	quickbooksRefreshes  *prometheus.CounterVec
}

// NewDomainMetrics registers the domain metrics on the provided registerer.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	compensation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_compensation_failures_total",
		Help: "Cost mutations whose compensating inventory adjustment failed.",
	}, []string{"operation"})
	orphans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_rollback_orphans_total",
		Help: "Uploaded image blobs that could not be removed during batch rollback.",
	})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quickbooks_token_refreshes_total",
		Help: "QuickBooks access token refresh attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(compensation, orphans, refreshes)
	return &DomainMetrics{
		compensationFailures: compensation,
		imageRollbackOrphans: orphans,
		quickbooksRefreshes:  refreshes,
	}
}

// IncCompensationFailure records a failed compensating adjustment for the named operation.
func (m *DomainMetrics) IncCompensationFailure(operation string) {
	if m == nil || m.compensationFailures == nil {
		return
	}
	m.compensationFailures.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncImageRollbackOrphan records a blob left behind by a failed rollback.
func (m *DomainMetrics) IncImageRollbackOrphan() {
	if m == nil || m.imageRollbackOrphans == nil {
		return
	}
	m.imageRollbackOrphans.Inc()
}

// IncQuickBooksRefresh records a token refresh attempt outcome ("success" or "failure").
func (m *DomainMetrics) IncQuickBooksRefresh(outcome string) {
	if m == nil || m.quickbooksRefreshes == nil {
		return
	}
	m.quickbooksRefreshes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
