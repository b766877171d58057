package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLifecycleMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLifecycleMetrics(reg)

	m.IncSuccess("approve")
	m.IncSuccess("approve")
	m.IncFailure("approve", "INSUFFICIENT_STOCK")
	m.ObserveDuration("approve", 25*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("approve")); got != 2 {
		t.Fatalf("expected 2 successes got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("approve", "INSUFFICIENT_STOCK")); got != 1 {
		t.Fatalf("expected 1 failure got %v", got)
	}
}

func TestLifecycleMetricsNilSafe(t *testing.T) {
	var m *LifecycleMetrics
	m.IncSuccess("approve")
	m.IncFailure("return", "NOT_FOUND")
	m.ObserveDuration("reject", time.Second)

	empty := NewLifecycleMetrics(nil)
	empty.IncSuccess("approve")
}
