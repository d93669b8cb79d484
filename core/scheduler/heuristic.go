package scheduler

import (
	"sort"

	"github.com/kilianp07/optiwatt/core/model"
)

// DefaultMaxLoadKW is the household capacity limit applied when the caller
// does not configure one.
const DefaultMaxLoadKW = 8.0

// HeuristicScheduler assigns each appliance a start hour with a greedy,
// single-pass search. It is deterministic, dependency-free and always
// returns one assignment per task, which makes it the fallback of last
// resort behind the exact solver.
//
// Tasks are committed in descending power order: the largest loads are the
// most constrained and must claim capacity first. For each task the fixed
// candidate order walks off-peak hours ascending, then normal, then peak,
// keeping the cheapest feasible start. A feasible preferred hour is only
// abandoned for a strictly cheaper one, so equal-cost moves never happen.
// The heuristic does not backtrack, so it guarantees feasibility and
// bounded time but not a globally optimal joint schedule.
type HeuristicScheduler struct{}

// Schedule places every task on the tariff day. The committed-load curve is
// local to one call; concurrent invocations share no state. Returns an
// InvalidTaskError before any placement if a task fails validation.
func (HeuristicScheduler) Schedule(tasks []model.ApplianceTask, profile model.HourlyProfile, tariff model.TariffTable, maxLoadKW float64) ([]model.ScheduleAssignment, error) {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	if maxLoadKW <= 0 {
		maxLoadKW = DefaultMaxLoadKW
	}

	// Descending power, stable so equal-power tasks keep input order.
	order := make([]int, len(tasks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return tasks[order[a]].PowerKW > tasks[order[b]].PowerKW
	})

	committed := profile
	candidates := candidateHours(tariff)
	out := make([]model.ScheduleAssignment, len(tasks))

	for _, idx := range order {
		task := tasks[idx]
		best := -1
		var bestCost float64
		// The feasible preferred hour seeds the search, so a task already
		// sitting in its cheapest feasible window is never moved for a
		// zero-savings shuffle.
		if fits(committed, task, task.PreferredHour, maxLoadKW) {
			best = task.PreferredHour
			bestCost = tariff.RunCost(task.PowerKW, task.PreferredHour, task.DurationHours)
		}
		for _, h := range candidates {
			if !fits(committed, task, h, maxLoadKW) {
				continue
			}
			cost := tariff.RunCost(task.PowerKW, h, task.DurationHours)
			// Strict less-than keeps the preferred hour on a tie and
			// otherwise the first candidate, so runs stay reproducible.
			if best < 0 || cost < bestCost {
				best = h
				bestCost = cost
			}
		}

		asn := model.ScheduleAssignment{Task: task}
		if best < 0 {
			// Degraded fallback: no feasible hour exists, keep the user's
			// preferred hour and flag the capacity violation.
			asn.AssignedHour = task.PreferredHour
			asn.Cost = tariff.RunCost(task.PowerKW, task.PreferredHour, task.DurationHours)
			asn.Overloaded = true
		} else {
			asn.AssignedHour = best
			asn.Cost = bestCost
		}
		for _, h := range model.RunHours(asn.AssignedHour, task.DurationHours) {
			committed[h] += task.PowerKW
		}
		out[idx] = asn
	}
	return out, nil
}

func fits(committed model.HourlyProfile, task model.ApplianceTask, start int, maxLoadKW float64) bool {
	for _, h := range model.RunHours(start, task.DurationHours) {
		if committed[h]+task.PowerKW > maxLoadKW {
			return false
		}
	}
	return true
}

// candidateHours returns the fixed search order: off-peak hours ascending,
// then normal, then peak as last resort. An explicit list rather than a
// sort keeps tie-break behavior reproducible.
func candidateHours(t model.TariffTable) []int {
	hours := t.HoursByTier(model.TierOffPeak)
	hours = append(hours, t.HoursByTier(model.TierNormal)...)
	hours = append(hours, t.HoursByTier(model.TierPeak)...)
	return hours
}
