package solver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/optiwatt/core/events"
	"github.com/kilianp07/optiwatt/core/logger"
	"github.com/kilianp07/optiwatt/core/metrics"
	"github.com/kilianp07/optiwatt/core/model"
	"github.com/kilianp07/optiwatt/core/scheduler"
	"github.com/kilianp07/optiwatt/internal/eventbus"
)

// errMalformedAnswer flags an exact-solver response that does not carry one
// assignment per task.
var errMalformedAnswer = errors.New("exact solver returned malformed answer")

// DefaultTimeout bounds the single exact-solver attempt when the caller
// does not configure one.
const DefaultTimeout = 5 * time.Second

// Gateway delegates an optimization problem to the exact solver and falls
// back to the heuristic scheduler on any failure. The fallback is silent in
// terms of output shape: only the Origin tag differs, so downstream
// consumers never special-case solver identity. One attempt per request, no
// retries.
type Gateway struct {
	exact     ExactSolver
	heuristic scheduler.HeuristicScheduler
	timeout   time.Duration
	sink      metrics.Sink
	bus       eventbus.EventBus
	log       logger.Logger
}

// NewGateway creates a gateway. exact may be nil, in which case every
// request is answered by the heuristic. sink and bus are optional.
func NewGateway(exact ExactSolver, timeout time.Duration, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Gateway{exact: exact, timeout: timeout, sink: sink, bus: bus, log: log}
}

// Optimize answers one request. Invalid tasks are rejected synchronously;
// solver unavailability is recovered locally and never propagated.
func (g *Gateway) Optimize(ctx context.Context, p Problem) (Result, error) {
	for _, t := range p.Tasks {
		if err := t.Validate(); err != nil {
			return Result{}, err
		}
	}

	runID := uuid.NewString()
	start := time.Now()

	assignments, origin, err := g.solve(ctx, runID, p)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		RunID:              runID,
		Origin:             origin,
		OptimizationResult: scheduler.Aggregate(assignments, p.Profile, p.Tariff, p.MaxLoadKW),
	}
	g.record(res, len(p.Tasks), time.Since(start))
	g.log.Debugw("optimization complete", map[string]any{
		"run_id": runID,
		"origin": string(origin),
		"tasks":  len(p.Tasks),
	})
	return res, nil
}

func (g *Gateway) solve(ctx context.Context, runID string, p Problem) ([]model.ScheduleAssignment, Origin, error) {
	if g.exact != nil && len(p.Tasks) > 0 {
		g.publish(events.StrategyEvent{RunID: runID, Action: "exact_attempt"})
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		asn, err := g.exact.Solve(cctx, p)
		cancel()
		if err == nil && len(asn) != len(p.Tasks) {
			err = errMalformedAnswer
		}
		if err == nil {
			return asn, OriginExact, nil
		}
		g.publish(events.StrategyEvent{RunID: runID, Action: "exact_failure", Err: err})
		g.log.Warnf("exact solver failed, using heuristic: %v", err)
		g.fallbackRecorded(runID, err)
	}
	asn, err := g.heuristic.Schedule(p.Tasks, p.Profile, p.Tariff, p.MaxLoadKW)
	if err != nil {
		return nil, OriginHeuristic, err
	}
	if g.exact != nil && len(p.Tasks) > 0 {
		g.publish(events.StrategyEvent{RunID: runID, Action: "heuristic_fallback"})
	}
	return asn, OriginHeuristic, nil
}

func (g *Gateway) publish(e eventbus.Event) {
	if g.bus != nil {
		g.bus.Publish(e)
	}
}

func (g *Gateway) fallbackRecorded(runID string, err error) {
	if fr, ok := g.sink.(metrics.FallbackRecorder); ok {
		if rerr := fr.RecordFallback(metrics.FallbackEvent{RunID: runID, Reason: err.Error(), Time: time.Now()}); rerr != nil {
			g.log.Errorf("fallback metrics error: %v", rerr)
		}
	}
}

func (g *Gateway) record(res Result, tasks int, d time.Duration) {
	if g.sink == nil {
		return
	}
	ev := metrics.OptimizationEvent{
		RunID:           res.RunID,
		Origin:          string(res.Origin),
		Tasks:           tasks,
		OverloadedCount: res.OverloadedCount,
		CostBefore:      res.TotalCostBefore,
		CostAfter:       res.TotalCostAfter,
		Duration:        d,
		Time:            time.Now(),
	}
	if err := g.sink.RecordOptimization(ev); err != nil {
		g.log.Errorf("optimization metrics error: %v", err)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
