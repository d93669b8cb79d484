// Package history defines the contract for persisting optimization runs.
package history

import (
	"context"
	"time"
)

// Record captures one optimization run for later inspection.
type Record struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Origin          string    `json:"origin"`
	TaskCount       int       `json:"task_count"`
	OverloadedCount int       `json:"overloaded_count"`
	TotalCostBefore float64   `json:"total_cost_before"`
	TotalCostAfter  float64   `json:"total_cost_after"`
	Savings         float64   `json:"savings"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start  time.Time
	End    time.Time
	Origin string
	Limit  int
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
