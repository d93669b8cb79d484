package scheduler

import (
	"math"

	"github.com/kilianp07/optiwatt/core/model"
)

// AssignmentReport compares one solver placement against the user's
// preferred hour.
type AssignmentReport struct {
	Task           model.ApplianceTask `json:"task"`
	AssignedHour   int                 `json:"assigned_hour"`
	Cost           float64             `json:"cost"`
	OriginalHour   int                 `json:"original_hour"`
	OriginalCost   float64             `json:"original_cost"`
	Savings        float64             `json:"savings"`
	SavingsPercent float64             `json:"savings_percent"`
	AssignedTier   string              `json:"assigned_tier"`
	OriginalTier   string              `json:"original_tier"`
	Changed        bool                `json:"changed"`
	Overloaded     bool                `json:"overloaded"`
}

// OptimizationResult is the caller-facing comparison of the optimized
// schedule against the declared one.
type OptimizationResult struct {
	Assignments     []AssignmentReport `json:"assignments"`
	TotalCostBefore float64            `json:"total_cost_before"`
	TotalCostAfter  float64            `json:"total_cost_after"`
	TotalSavings    float64            `json:"total_savings"`
	SavingsPercent  float64            `json:"savings_percent"`
	MonthlySavings  float64            `json:"monthly_savings"`
	OverloadedCount int                `json:"overloaded_count"`
}

// Aggregate reduces a solver's assignments to an OptimizationResult. It
// performs no search: per assignment it recomputes the cost of running at
// the preferred hour with the same formula the scheduler uses, then derives
// savings and totals. The capacity check is recomputed over the whole
// schedule so overloaded assignments are flagged regardless of which solver
// produced them. The "before" schedule is taken as-is and is not checked
// against capacity.
func Aggregate(assignments []model.ScheduleAssignment, profile model.HourlyProfile, tariff model.TariffTable, maxLoadKW float64) OptimizationResult {
	if maxLoadKW <= 0 {
		maxLoadKW = DefaultMaxLoadKW
	}

	load := profile
	for _, a := range assignments {
		for _, h := range model.RunHours(a.AssignedHour, a.Task.DurationHours) {
			load[h] += a.Task.PowerKW
		}
	}

	res := OptimizationResult{Assignments: make([]AssignmentReport, 0, len(assignments))}
	for _, a := range assignments {
		orig := tariff.RunCost(a.Task.PowerKW, a.Task.PreferredHour, a.Task.DurationHours)
		rep := AssignmentReport{
			Task:         a.Task,
			AssignedHour: a.AssignedHour,
			Cost:         round2(a.Cost),
			OriginalHour: a.Task.PreferredHour,
			OriginalCost: round2(orig),
			Savings:      round2(orig - a.Cost),
			AssignedTier: tariff[a.AssignedHour].Tier.String(),
			OriginalTier: tariff[a.Task.PreferredHour].Tier.String(),
			Changed:      a.AssignedHour != a.Task.PreferredHour,
			Overloaded:   overloaded(load, a, maxLoadKW),
		}
		if orig > 0 {
			rep.SavingsPercent = round1((orig - a.Cost) / orig * 100)
		}
		if rep.Overloaded {
			res.OverloadedCount++
		}
		res.TotalCostBefore += orig
		res.TotalCostAfter += a.Cost
		res.Assignments = append(res.Assignments, rep)
	}

	res.TotalSavings = round2(res.TotalCostBefore - res.TotalCostAfter)
	res.MonthlySavings = round2(res.TotalSavings * 30)
	if res.TotalCostBefore > 0 {
		res.SavingsPercent = round1(res.TotalSavings / res.TotalCostBefore * 100)
	}
	res.TotalCostBefore = round2(res.TotalCostBefore)
	res.TotalCostAfter = round2(res.TotalCostAfter)
	return res
}

func overloaded(load model.HourlyProfile, a model.ScheduleAssignment, maxLoadKW float64) bool {
	for _, h := range model.RunHours(a.AssignedHour, a.Task.DurationHours) {
		if load[h] > maxLoadKW+1e-9 {
			return true
		}
	}
	return false
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func round1(f float64) float64 { return math.Round(f*10) / 10 }
