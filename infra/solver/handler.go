package solver

import (
	"encoding/json"
	"net/http"

	coresolver "github.com/kilianp07/optiwatt/core/solver"

	"github.com/kilianp07/optiwatt/core/model"
)

// Handler serves the exact-solver wire contract locally by delegating to
// the given backend. It exists for tests and demo setups where no remote
// solver is deployed.
func Handler(backend coresolver.ExactSolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req solveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p := coresolver.Problem{Profile: req.BackgroundProfile, MaxLoadKW: req.MaxLoad}
		for _, t := range req.Tasks {
			p.Tasks = append(p.Tasks, model.ApplianceTask{
				ID:            t.ID,
				Name:          t.Name,
				PowerKW:       t.Power,
				DurationHours: t.Duration,
				PreferredHour: t.PreferredHour,
			})
		}
		records := make([]model.TariffRecord, 0, len(req.Tariff))
		for h, rate := range req.Tariff {
			records = append(records, model.TariffRecord{Hour: h, PriceKWh: rate.Price, Tier: model.ParseTier(rate.Tier)})
		}
		p.Tariff = model.NewTariffTable(records)

		assignments, err := backend.Solve(r.Context(), p)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		resp := solveResponse{Assignments: make([]assignmentPayload, 0, len(assignments))}
		for _, a := range assignments {
			resp.Assignments = append(resp.Assignments, assignmentPayload{
				TaskID:       a.Task.ID,
				AssignedHour: a.AssignedHour,
				Cost:         a.Cost,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
