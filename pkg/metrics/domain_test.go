package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDomainMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDomainMetrics(reg)

	metrics.IncCompensationFailure("update_cost")
	metrics.IncCompensationFailure("update_cost")
	metrics.IncImageRollbackOrphan()
	metrics.IncQuickBooksRefresh("success")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "inventory_compensation_failures_total", "operation", "update_cost"); err != nil {
		t.Fatalf("fetch compensation: %v", err)
	} else if got != 2 {
		t.Fatalf("expected compensation=2, got %f", got)
	}

	if mf := findMetricFamily(mfs, "image_rollback_orphans_total"); mf == nil {
		t.Fatal("orphan counter not registered")
	} else if mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected orphans=1, got %f", mf.GetMetric()[0].GetCounter().GetValue())
	}

	if got, err := fetchCounterValue(mfs, "quickbooks_token_refreshes_total", "outcome", "success"); err != nil {
		t.Fatalf("fetch refreshes: %v", err)
	} else if got != 1 {
		t.Fatalf("expected refreshes=1, got %f", got)
	}
}

func TestDomainMetricsNilRegisterer(t *testing.T) {
	metrics := NewDomainMetrics(nil)
	metrics.IncCompensationFailure("delete_cost")
	metrics.IncImageRollbackOrphan()
	metrics.IncQuickBooksRefresh("failure")
}
