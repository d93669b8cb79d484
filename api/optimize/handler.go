// Package optimize exposes the schedule optimization engine over HTTP.
package optimize

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/kilianp07/optiwatt/core/events"
	"github.com/kilianp07/optiwatt/core/history"
	"github.com/kilianp07/optiwatt/core/logger"
	"github.com/kilianp07/optiwatt/core/model"
	"github.com/kilianp07/optiwatt/core/scheduler"
	"github.com/kilianp07/optiwatt/core/solver"
	"github.com/kilianp07/optiwatt/infra/mqtt"
	"github.com/kilianp07/optiwatt/internal/eventbus"
)

// Server wires the solver gateway to the HTTP surface.
type Server struct {
	gw         *solver.Gateway
	profile    model.HourlyProfile
	tariff     model.TariffTable
	maxLoadKW  float64
	store      history.Store     // optional
	publisher  mqtt.Publisher    // optional
	bus        eventbus.EventBus // optional
	log        logger.Logger
	solverKind string
}

// NewServer creates a Server. store, publisher and bus may be nil.
func NewServer(gw *solver.Gateway, profile model.HourlyProfile, tariff model.TariffTable, maxLoadKW float64, store history.Store, publisher mqtt.Publisher, bus eventbus.EventBus, log logger.Logger, solverKind string) *Server {
	if maxLoadKW <= 0 {
		maxLoadKW = scheduler.DefaultMaxLoadKW
	}
	return &Server{
		gw:         gw,
		profile:    profile,
		tariff:     tariff,
		maxLoadKW:  maxLoadKW,
		store:      store,
		publisher:  publisher,
		bus:        bus,
		log:        log,
		solverKind: solverKind,
	}
}

// Handler returns the chi router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/health", s.handleHealth)
		r.Get("/runs", s.handleRuns)
	})
	return r
}

type applianceRequest struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Power         float64 `json:"power"`
	Duration      int     `json:"duration"`
	PreferredHour int     `json:"preferredHour"`
}

type optimizeRequest struct {
	Appliances []applianceRequest `json:"appliances"`
	BaseLoad   []float64          `json:"baseLoad"`
	MaxPower   float64            `json:"maxPower"`
}

type resultEntry struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Power          float64 `json:"power"`
	Duration       int     `json:"duration"`
	OriginalHour   int     `json:"originalHour"`
	OptimizedHour  int     `json:"optimizedHour"`
	OriginalCost   float64 `json:"originalCost"`
	OptimizedCost  float64 `json:"optimizedCost"`
	Savings        float64 `json:"savings"`
	SavingsPercent float64 `json:"savingsPercent"`
	HasChange      bool    `json:"hasChange"`
	OriginalTier   string  `json:"originalTier"`
	OptimizedTier  string  `json:"optimizedTier"`
	Overloaded     bool    `json:"overloaded"`
}

type optimizeSummary struct {
	OriginalCost   float64 `json:"originalCost"`
	OptimizedCost  float64 `json:"optimizedCost"`
	DailySavings   float64 `json:"dailySavings"`
	MonthlySavings float64 `json:"monthlySavings"`
	SavingsPercent float64 `json:"savingsPercent"`
}

type optimizeResponse struct {
	Success bool            `json:"success"`
	RunID   string          `json:"runId"`
	Origin  string          `json:"origin"`
	Results []resultEntry   `json:"results"`
	Summary optimizeSummary `json:"summary"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tasks := make([]model.ApplianceTask, 0, len(req.Appliances))
	for _, a := range req.Appliances {
		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		tasks = append(tasks, model.ApplianceTask{
			ID:            id,
			Name:          a.Name,
			PowerKW:       a.Power,
			DurationHours: a.Duration,
			PreferredHour: a.PreferredHour,
		})
	}

	profile := s.profile
	if len(req.BaseLoad) == model.HoursPerDay {
		copy(profile[:], req.BaseLoad)
	}
	maxLoad := s.maxLoadKW
	if req.MaxPower > 0 {
		maxLoad = req.MaxPower
	}

	res, err := s.gw.Optimize(r.Context(), solver.Problem{
		Tasks:     tasks,
		Profile:   profile,
		Tariff:    s.tariff,
		MaxLoadKW: maxLoad,
	})
	if err != nil {
		var invalid model.InvalidTaskError
		if errors.As(err, &invalid) {
			httpError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.persist(r, res, len(tasks))
	s.publish(res)

	resp := optimizeResponse{
		Success: true,
		RunID:   res.RunID,
		Origin:  string(res.Origin),
		Results: make([]resultEntry, 0, len(res.Assignments)),
		Summary: optimizeSummary{
			OriginalCost:   res.TotalCostBefore,
			OptimizedCost:  res.TotalCostAfter,
			DailySavings:   res.TotalSavings,
			MonthlySavings: res.MonthlySavings,
			SavingsPercent: res.SavingsPercent,
		},
	}
	for _, a := range res.Assignments {
		resp.Results = append(resp.Results, resultEntry{
			ID:             a.Task.ID,
			Name:           a.Task.Name,
			Power:          a.Task.PowerKW,
			Duration:       a.Task.DurationHours,
			OriginalHour:   a.OriginalHour,
			OptimizedHour:  a.AssignedHour,
			OriginalCost:   a.OriginalCost,
			OptimizedCost:  a.Cost,
			Savings:        a.Savings,
			SavingsPercent: a.SavingsPercent,
			HasChange:      a.Changed,
			OriginalTier:   a.OriginalTier,
			OptimizedTier:  a.AssignedTier,
			Overloaded:     a.Overloaded,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"solver": s.solverKind,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httpError(w, http.StatusNotFound, "run history is not configured")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := s.store.Query(r.Context(), history.Query{
		Origin: r.URL.Query().Get("origin"),
		Limit:  limit,
	})
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) persist(r *http.Request, res solver.Result, taskCount int) {
	if s.store == nil {
		return
	}
	rec := history.Record{
		ID:              res.RunID,
		Timestamp:       time.Now().UTC(),
		Origin:          string(res.Origin),
		TaskCount:       taskCount,
		OverloadedCount: res.OverloadedCount,
		TotalCostBefore: res.TotalCostBefore,
		TotalCostAfter:  res.TotalCostAfter,
		Savings:         res.TotalSavings,
	}
	if err := s.store.Append(r.Context(), rec); err != nil {
		s.log.Errorf("history append: %v", err)
	}
}

func (s *Server) publish(res solver.Result) {
	if s.publisher == nil {
		return
	}
	for _, a := range res.Assignments {
		asn := model.ScheduleAssignment{
			Task:         a.Task,
			AssignedHour: a.AssignedHour,
			Cost:         a.Cost,
			Overloaded:   a.Overloaded,
		}
		if err := s.publisher.PublishAssignment(res.RunID, asn); err != nil {
			s.log.Errorf("schedule publish %s: %v", a.Task.ID, err)
			continue
		}
		if s.bus != nil {
			s.bus.Publish(events.ScheduleEvent{RunID: res.RunID, TaskID: a.Task.ID, Hour: a.AssignedHour})
		}
	}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
