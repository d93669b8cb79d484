package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/optiwatt/core/metrics"
)

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RecordOptimization(coremetrics.OptimizationEvent) error { return nil }
func (NopSink) RecordFallback(coremetrics.FallbackEvent) error         { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink combines the given sinks into one.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// RecordOptimization forwards the event to every sink and joins errors.
func (m *MultiSink) RecordOptimization(ev coremetrics.OptimizationEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordOptimization(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordFallback forwards to sinks implementing FallbackRecorder.
func (m *MultiSink) RecordFallback(ev coremetrics.FallbackEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if fr, ok := s.(coremetrics.FallbackRecorder); ok {
			if err := fr.RecordFallback(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
