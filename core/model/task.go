package model

import "fmt"

// ApplianceTask represents one contiguous run request for a schedulable
// device. Tasks are created by the caller and never mutated by the engine;
// solvers produce separate ScheduleAssignment records.
type ApplianceTask struct {
	ID            string
	Name          string
	PowerKW       float64 // power drawn while running, in kW
	DurationHours int     // contiguous run length in hours, 1-24
	PreferredHour int     // start hour the user would pick on their own, 0-23
}

// InvalidTaskError reports a task rejected before scheduling. Values are
// rejected, not clamped.
type InvalidTaskError struct {
	TaskID string
	Field  string
	Reason string
}

func (e InvalidTaskError) Error() string {
	return fmt.Sprintf("invalid task %s: %s %s", e.TaskID, e.Field, e.Reason)
}

// Validate checks that the task parameters are schedulable.
func (t ApplianceTask) Validate() error {
	if t.PowerKW <= 0 {
		return InvalidTaskError{TaskID: t.ID, Field: "power", Reason: "must be positive"}
	}
	if t.DurationHours <= 0 {
		return InvalidTaskError{TaskID: t.ID, Field: "duration", Reason: "must be positive"}
	}
	if t.DurationHours > HoursPerDay {
		return InvalidTaskError{TaskID: t.ID, Field: "duration", Reason: "exceeds 24 hours"}
	}
	if t.PreferredHour < 0 || t.PreferredHour >= HoursPerDay {
		return InvalidTaskError{TaskID: t.ID, Field: "preferred_hour", Reason: "out of range 0-23"}
	}
	return nil
}

// ScheduleAssignment is a solver's placement of one task. Overloaded marks
// the degraded state where no feasible hour existed and the preferred hour
// was kept despite violating the capacity limit.
type ScheduleAssignment struct {
	Task         ApplianceTask
	AssignedHour int
	Cost         float64
	Overloaded   bool
}

// RunHours returns the hours of day covered by a run starting at start,
// wrapping past midnight.
func RunHours(start, duration int) []int {
	hours := make([]int, 0, duration)
	for k := 0; k < duration; k++ {
		hours = append(hours, (start+k)%HoursPerDay)
	}
	return hours
}
