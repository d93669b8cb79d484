package solver

import (
	"context"

	"github.com/kilianp07/optiwatt/core/model"
	"github.com/kilianp07/optiwatt/core/scheduler"
)

// Origin tags which solver produced an optimization result.
type Origin string

const (
	OriginExact     Origin = "exact"
	OriginHeuristic Origin = "heuristic"
)

// Problem bundles one optimization request. It is read-only for solvers.
type Problem struct {
	Tasks     []model.ApplianceTask
	Profile   model.HourlyProfile
	Tariff    model.TariffTable
	MaxLoadKW float64
}

// ExactSolver computes a cost-minimal joint schedule. Implementations may be
// remote; Solve must honor ctx cancellation and return one assignment per
// task on success.
type ExactSolver interface {
	Solve(ctx context.Context, p Problem) ([]model.ScheduleAssignment, error)
}

// Result is the caller-facing outcome of one optimization request.
type Result struct {
	RunID  string `json:"run_id"`
	Origin Origin `json:"origin"`
	scheduler.OptimizationResult
}
