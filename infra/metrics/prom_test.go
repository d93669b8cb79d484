package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/optiwatt/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = sink.RecordOptimization(coremetrics.OptimizationEvent{
		RunID:      "r1",
		Origin:     "exact",
		Tasks:      2,
		CostBefore: 51,
		CostAfter:  27,
		Duration:   40 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("record optimization: %v", err)
	}
	if err := sink.RecordFallback(coremetrics.FallbackEvent{RunID: "r2", Reason: "timeout"}); err != nil {
		t.Fatalf("record fallback: %v", err)
	}

	if got := testutil.ToFloat64(sink.runs.WithLabelValues("exact")); got != 1 {
		t.Fatalf("expected 1 exact run, got %v", got)
	}
	if got := testutil.ToFloat64(sink.fallbacks); got != 1 {
		t.Fatalf("expected 1 fallback, got %v", got)
	}
	if got := testutil.ToFloat64(sink.savings); got != 24 {
		t.Fatalf("expected cumulative savings 24, got %v", got)
	}
}

func TestPromSinkNegativeSavingsNotCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatal(err)
	}
	err = sink.RecordOptimization(coremetrics.OptimizationEvent{Origin: "heuristic", CostBefore: 10, CostAfter: 12})
	if err != nil {
		t.Fatalf("record optimization: %v", err)
	}
	if got := testutil.ToFloat64(sink.savings); got != 0 {
		t.Fatalf("a counter cannot go backwards, expected 0, got %v", got)
	}
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSink(reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("second registration must reuse collectors: %v", err)
	}

	if err := first.RecordFallback(coremetrics.FallbackEvent{}); err != nil {
		t.Fatal(err)
	}
	if err := second.RecordFallback(coremetrics.FallbackEvent{}); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(second.fallbacks); got != 2 {
		t.Fatalf("both sinks must share the counter, got %v", got)
	}
}
