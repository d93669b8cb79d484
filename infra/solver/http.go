// Package solver provides the HTTP transport for delegating optimization
// problems to an external exact solver.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	coresolver "github.com/kilianp07/optiwatt/core/solver"

	"github.com/kilianp07/optiwatt/core/logger"
	"github.com/kilianp07/optiwatt/core/model"
)

// HTTPSolver calls a remote exact solver endpoint. The request context
// carries the gateway's timeout; a single attempt is made per problem.
type HTTPSolver struct {
	client *http.Client
	url    string
	log    logger.Logger
}

// NewHTTPSolver creates a client for the given endpoint URL. The timeout is
// driven entirely by the caller's context, so the underlying http.Client
// carries none of its own.
func NewHTTPSolver(url string, log logger.Logger) *HTTPSolver {
	return &HTTPSolver{client: &http.Client{}, url: url, log: log}
}

type taskPayload struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Power         float64 `json:"power"`
	Duration      int     `json:"duration"`
	PreferredHour int     `json:"preferredHour"`
}

type ratePayload struct {
	Price float64 `json:"price"`
	Tier  string  `json:"tier"`
}

type solveRequest struct {
	Tasks             []taskPayload              `json:"tasks"`
	BackgroundProfile [model.HoursPerDay]float64 `json:"backgroundProfile"`
	Tariff            []ratePayload              `json:"tariff"`
	MaxLoad           float64                    `json:"maxLoad"`
}

type assignmentPayload struct {
	TaskID       string  `json:"taskId"`
	AssignedHour int     `json:"assignedHour"`
	Cost         float64 `json:"cost"`
}

type solveResponse struct {
	Assignments []assignmentPayload `json:"assignments"`
}

// Solve implements coresolver.ExactSolver over HTTP. Any non-success status,
// malformed body, unknown task ID or out-of-range hour is an error; the
// gateway turns all of them into a heuristic fallback.
func (s *HTTPSolver) Solve(ctx context.Context, p coresolver.Problem) ([]model.ScheduleAssignment, error) {
	req := solveRequest{
		Tasks:             make([]taskPayload, 0, len(p.Tasks)),
		BackgroundProfile: p.Profile,
		Tariff:            make([]ratePayload, 0, model.HoursPerDay),
		MaxLoad:           p.MaxLoadKW,
	}
	for _, t := range p.Tasks {
		req.Tasks = append(req.Tasks, taskPayload{
			ID:            t.ID,
			Name:          t.Name,
			Power:         t.PowerKW,
			Duration:      t.DurationHours,
			PreferredHour: t.PreferredHour,
		})
	}
	for h := 0; h < model.HoursPerDay; h++ {
		req.Tariff = append(req.Tariff, ratePayload{Price: p.Tariff[h].PriceKWh, Tier: p.Tariff[h].Tier.String()})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("solver endpoint returned %s", resp.Status)
	}

	var sr solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode solver response: %w", err)
	}
	if s.log != nil {
		s.log.Debugf("solver endpoint answered with %d assignments", len(sr.Assignments))
	}

	byID := make(map[string]model.ApplianceTask, len(p.Tasks))
	for _, t := range p.Tasks {
		byID[t.ID] = t
	}
	assignments := make([]model.ScheduleAssignment, 0, len(sr.Assignments))
	for _, a := range sr.Assignments {
		task, ok := byID[a.TaskID]
		if !ok {
			return nil, fmt.Errorf("solver answered for unknown task %q", a.TaskID)
		}
		if a.AssignedHour < 0 || a.AssignedHour >= model.HoursPerDay {
			return nil, fmt.Errorf("solver assigned hour %d out of range for task %q", a.AssignedHour, a.TaskID)
		}
		assignments = append(assignments, model.ScheduleAssignment{
			Task:         task,
			AssignedHour: a.AssignedHour,
			Cost:         a.Cost,
		})
	}
	return assignments, nil
}
