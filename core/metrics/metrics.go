package metrics

import "time"

// OptimizationEvent summarizes one completed optimization run.
type OptimizationEvent struct {
	RunID           string
	Origin          string
	Tasks           int
	OverloadedCount int
	CostBefore      float64
	CostAfter       float64
	Duration        time.Duration
	Time            time.Time
}

// Sink records optimization runs for observability purposes.
type Sink interface {
	RecordOptimization(ev OptimizationEvent) error
}

// FallbackEvent captures a fall back from the exact solver to the heuristic.
type FallbackEvent struct {
	RunID  string
	Reason string
	Time   time.Time
}

// FallbackRecorder records solver fallbacks. Sinks implement it optionally.
type FallbackRecorder interface {
	RecordFallback(ev FallbackEvent) error
}
