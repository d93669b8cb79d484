// Package events defines the notifications published on the internal event
// bus while an optimization request is processed.
package events

// StrategyEvent reports a solver strategy decision for one optimization run.
// Actions are "exact_attempt", "exact_failure" and "heuristic_fallback".
type StrategyEvent struct {
	RunID  string
	Action string
	Err    error
}

// ScheduleEvent reports a published appliance schedule.
type ScheduleEvent struct {
	RunID  string
	TaskID string
	Hour   int
}
