package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/optiwatt/core/metrics"
)

// PromSink records optimization runs in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	fallbacks prometheus.Counter
	savings   prometheus.Counter
	duration  *prometheus.HistogramVec
}

// NewPromSink registers optimization metrics on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. If the
// collectors are already registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimize_runs_total",
		Help: "Total number of optimization runs",
	}, []string{"origin"})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "solver_fallbacks_total",
		Help: "Exact solver failures recovered by the heuristic",
	})
	savings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimize_savings_total",
		Help: "Cumulative daily savings computed across runs",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimize_duration_seconds",
		Help:    "Time spent answering an optimization request",
		Buckets: prometheus.DefBuckets,
	}, []string{"origin"})

	for _, c := range []prometheus.Collector{runs, fallbacks, savings, duration} {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			switch existing := are.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				runs = existing
			case prometheus.Counter:
				if c == fallbacks {
					fallbacks = existing
				} else {
					savings = existing
				}
			case *prometheus.HistogramVec:
				duration = existing
			}
		}
	}
	return &PromSink{runs: runs, fallbacks: fallbacks, savings: savings, duration: duration}, nil
}

// RecordOptimization increments the run counter and observes the duration.
func (s *PromSink) RecordOptimization(ev coremetrics.OptimizationEvent) error {
	s.runs.WithLabelValues(ev.Origin).Inc()
	s.duration.WithLabelValues(ev.Origin).Observe(ev.Duration.Seconds())
	if d := ev.CostBefore - ev.CostAfter; d > 0 {
		s.savings.Add(d)
	}
	return nil
}

// RecordFallback implements coremetrics.FallbackRecorder.
func (s *PromSink) RecordFallback(coremetrics.FallbackEvent) error {
	s.fallbacks.Inc()
	return nil
}
