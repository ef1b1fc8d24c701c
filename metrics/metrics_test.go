package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCountsPerMethod(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Dispatched("ping")
	c.Dispatched("ping")
	c.Filtered("ping")
	c.Dropped("get_value")
	c.Failed("echo")
	c.ActiveCallsInc()
	c.ActiveCallsInc()
	c.ActiveCallsDec()

	if got := testutil.ToFloat64(c.dispatched.WithLabelValues("ping")); got != 2 {
		t.Fatalf("dispatched[ping] = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.filtered.WithLabelValues("ping")); got != 1 {
		t.Fatalf("filtered[ping] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.dropped.WithLabelValues("get_value")); got != 1 {
		t.Fatalf("dropped[get_value] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.failed.WithLabelValues("echo")); got != 1 {
		t.Fatalf("failed[echo] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.activeCalls); got != 1 {
		t.Fatalf("activeCalls = %v, want 1", got)
	}
}
