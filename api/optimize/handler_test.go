package optimize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/optiwatt/core/events"
	corehistory "github.com/kilianp07/optiwatt/core/history"
	"github.com/kilianp07/optiwatt/core/model"
	"github.com/kilianp07/optiwatt/core/solver"
	"github.com/kilianp07/optiwatt/infra/history"
	"github.com/kilianp07/optiwatt/infra/logger"
	"github.com/kilianp07/optiwatt/infra/mqtt"
	"github.com/kilianp07/optiwatt/internal/eventbus"
)

func newTestServer(t *testing.T, exact solver.ExactSolver, store corehistory.Store, pub mqtt.Publisher) *Server {
	t.Helper()
	gw := solver.NewGateway(exact, time.Second, nil, nil, logger.NopLogger{})
	return NewServer(gw, model.FlatProfile(0.5), model.DefaultTariff(), 8, store, pub, nil, logger.NopLogger{}, "none")
}

func postOptimize(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/optimize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestOptimizeEndpoint(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	srv := newTestServer(t, nil, nil, pub)
	h := srv.Handler()

	body := `{"appliances":[{"id":"wm","name":"washing machine","power":2,"duration":3,"preferredHour":18}]}`
	rr := postOptimize(t, h, body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.RunID)
	require.Equal(t, "heuristic", resp.Origin)
	require.Len(t, resp.Results, 1)

	entry := resp.Results[0]
	require.Equal(t, "wm", entry.ID)
	require.Equal(t, 18, entry.OriginalHour)
	require.Equal(t, 0, entry.OptimizedHour)
	require.Equal(t, 51.0, entry.OriginalCost)
	require.Equal(t, 27.0, entry.OptimizedCost)
	require.Equal(t, 24.0, entry.Savings)
	require.True(t, entry.HasChange)
	require.Equal(t, "peak", entry.OriginalTier)
	require.Equal(t, "off-peak", entry.OptimizedTier)

	require.Equal(t, 51.0, resp.Summary.OriginalCost)
	require.Equal(t, 27.0, resp.Summary.OptimizedCost)
	require.Equal(t, 24.0, resp.Summary.DailySavings)
	require.Equal(t, 720.0, resp.Summary.MonthlySavings)
	require.Equal(t, 47.1, resp.Summary.SavingsPercent)

	// The optimized schedule is pushed to the plug topic.
	require.Equal(t, 0, pub.Messages["wm"])
}

func TestOptimizeEndpointFillsMissingIDs(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	rr := postOptimize(t, srv.Handler(), `{"appliances":[{"name":"tv","power":0.2,"duration":1,"preferredHour":20}]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	require.NotEmpty(t, resp.Results[0].ID)
}

func TestOptimizeEndpointEmptyApplianceList(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	rr := postOptimize(t, srv.Handler(), `{"appliances":[]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Empty(t, resp.Results)
	require.Zero(t, resp.Summary.OriginalCost)
	require.Zero(t, resp.Summary.DailySavings)
}

func TestOptimizeEndpointInvalidTask(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	rr := postOptimize(t, srv.Handler(), `{"appliances":[{"id":"bad","power":-1,"duration":1}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, false, resp["success"])
	require.Contains(t, resp["error"], "bad")
}

func TestOptimizeEndpointMalformedBody(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	rr := postOptimize(t, srv.Handler(), `{"appliances":`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOptimizeEndpointCustomBaseLoadAndMaxPower(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	baseLoad := make([]float64, model.HoursPerDay)
	for i := range baseLoad {
		baseLoad[i] = 7.5
	}
	req := optimizeRequest{
		Appliances: []applianceRequest{{ID: "wm", Power: 2, Duration: 1, PreferredHour: 3}},
		BaseLoad:   baseLoad,
		MaxPower:   8,
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rr := postOptimize(t, srv.Handler(), string(body))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	// 7.5 kW everywhere leaves no room for 2 kW under an 8 kW limit.
	require.True(t, resp.Results[0].Overloaded)
}

func TestOptimizeEndpointExactOrigin(t *testing.T) {
	srv := newTestServer(t, solver.LPSolver{}, nil, nil)
	rr := postOptimize(t, srv.Handler(), `{"appliances":[{"id":"wm","power":2,"duration":3,"preferredHour":18}]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "exact", resp.Origin)
	require.Equal(t, 27.0, resp.Summary.OptimizedCost)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
	require.Equal(t, "none", resp["solver"])
}

func TestRunsEndpoint(t *testing.T) {
	store, err := history.NewJSONLStore(t.TempDir() + "/runs.log")
	require.NoError(t, err)
	srv := newTestServer(t, nil, store, nil)
	h := srv.Handler()

	rr := postOptimize(t, h, `{"appliances":[{"id":"wm","power":2,"duration":3,"preferredHour":18}]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var recs []corehistory.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	require.Equal(t, "heuristic", recs[0].Origin)
	require.Equal(t, 1, recs[0].TaskCount)
	require.Equal(t, 24.0, recs[0].Savings)
}

func TestRunsEndpointWithoutStore(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/optimize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestOptimizeEndpointEmitsScheduleEvents(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	pub.FailIDs["dw"] = true
	bus := eventbus.New()
	ch := bus.Subscribe()

	gw := solver.NewGateway(nil, time.Second, nil, nil, logger.NopLogger{})
	srv := NewServer(gw, model.FlatProfile(0.5), model.DefaultTariff(), 8, nil, pub, bus, logger.NopLogger{}, "none")

	body := `{"appliances":[
		{"id":"wm","power":2,"duration":3,"preferredHour":18},
		{"id":"dw","power":1,"duration":1,"preferredHour":20}
	]}`
	rr := postOptimize(t, srv.Handler(), body)
	require.Equal(t, http.StatusOK, rr.Code)

	var got []events.ScheduleEvent
	for done := false; !done; {
		select {
		case ev := <-ch:
			if se, ok := ev.(events.ScheduleEvent); ok {
				got = append(got, se)
			}
		default:
			done = true
		}
	}
	// Only the successfully pushed schedule produces an event.
	require.Len(t, got, 1)
	require.Equal(t, "wm", got[0].TaskID)
	require.Equal(t, 0, got[0].Hour)
	require.NotEmpty(t, got[0].RunID)
}

// failingSolver always errors so the gateway has to fall back.
type failingSolver struct{}

func (failingSolver) Solve(context.Context, solver.Problem) ([]model.ScheduleAssignment, error) {
	return nil, errors.New("unavailable")
}

func TestOptimizeEndpointSilentFallback(t *testing.T) {
	srv := newTestServer(t, failingSolver{}, nil, nil)
	rr := postOptimize(t, srv.Handler(), `{"appliances":[{"id":"wm","power":2,"duration":3,"preferredHour":18}]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "heuristic", resp.Origin)
	require.Equal(t, 27.0, resp.Summary.OptimizedCost)
}
