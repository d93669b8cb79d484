package solver

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/optiwatt/core/model"
	"github.com/kilianp07/optiwatt/core/scheduler"
)

// ErrInfeasible indicates the LP produced no capacity-feasible schedule.
var ErrInfeasible = errors.New("lp infeasible")

// LPSolver solves the start-hour assignment problem as a linear program:
// one indicator variable per task and candidate start hour, minimizing
// total cost subject to the per-task runtime constraint and the hourly
// capacity limit. The relaxation is solved with the simplex algorithm and
// rounded per task to the largest start-hour variable; if the rounded
// schedule violates capacity the solver reports ErrInfeasible so the
// gateway can fall back to the heuristic.
type LPSolver struct{}

// runSimplex converts the general-form program to standard form and runs
// the simplex algorithm, returning the first len(c) solution components.
func runSimplex(c []float64, g *mat.Dense, h []float64, a *mat.Dense, b []float64) ([]float64, error) {
	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, 1e-7, nil)
	if err != nil {
		return nil, err
	}
	return sol[:len(c)], nil
}

// lpSolve points to the function used to solve the LP. It can be overridden
// in tests to simulate solver failures.
var lpSolve = runSimplex

// Solve implements ExactSolver.
func (LPSolver) Solve(ctx context.Context, p Problem) ([]model.ScheduleAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, t := range p.Tasks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	n := len(p.Tasks)
	if n == 0 {
		return nil, nil
	}
	maxLoad := p.MaxLoadKW
	if maxLoad <= 0 {
		maxLoad = scheduler.DefaultMaxLoadKW
	}

	const H = model.HoursPerDay
	nVar := n * H
	idx := func(task, start int) int { return task*H + start }

	c := make([]float64, nVar)
	for i, t := range p.Tasks {
		for s := 0; s < H; s++ {
			c[idx(i, s)] = p.Tariff.RunCost(t.PowerKW, s, t.DurationHours)
		}
	}

	// Equality: each task starts exactly once.
	a := mat.NewDense(n, nVar, nil)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		for s := 0; s < H; s++ {
			a.Set(i, idx(i, s), 1)
		}
		b[i] = 1
	}

	// Inequalities: hourly capacity, then the 0..1 box on every variable.
	rows := H + 2*nVar
	g := mat.NewDense(rows, nVar, nil)
	h := make([]float64, rows)
	for hour := 0; hour < H; hour++ {
		for i, t := range p.Tasks {
			for s := 0; s < H; s++ {
				if covers(s, t.DurationHours, hour) {
					g.Set(hour, idx(i, s), t.PowerKW)
				}
			}
		}
		h[hour] = maxLoad - p.Profile[hour]
	}
	for v := 0; v < nVar; v++ {
		g.Set(H+v, v, 1)
		h[H+v] = 1
		g.Set(H+nVar+v, v, -1)
		h[H+nVar+v] = 0
	}

	sol, err := lpSolve(c, g, h, a, b)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assignments := make([]model.ScheduleAssignment, n)
	load := p.Profile
	for i, t := range p.Tasks {
		start := 0
		bestVal := sol[idx(i, 0)]
		for s := 1; s < H; s++ {
			if v := sol[idx(i, s)]; v > bestVal {
				start = s
				bestVal = v
			}
		}
		assignments[i] = model.ScheduleAssignment{
			Task:         t,
			AssignedHour: start,
			Cost:         p.Tariff.RunCost(t.PowerKW, start, t.DurationHours),
		}
		for _, hr := range model.RunHours(start, t.DurationHours) {
			load[hr] += t.PowerKW
		}
	}
	for hr := 0; hr < H; hr++ {
		if load[hr] > maxLoad+1e-6 {
			return nil, ErrInfeasible
		}
	}
	return assignments, nil
}

// covers reports whether a run starting at start with the given duration
// includes hour, wrapping past midnight.
func covers(start, duration, hour int) bool {
	diff := hour - start
	if diff < 0 {
		diff += model.HoursPerDay
	}
	return diff < duration
}
