package solver

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	coresolver "github.com/kilianp07/optiwatt/core/solver"

	"github.com/kilianp07/optiwatt/core/model"
)

func testProblem() coresolver.Problem {
	return coresolver.Problem{
		Tasks:     []model.ApplianceTask{{ID: "wm", Name: "washing machine", PowerKW: 2, DurationHours: 3, PreferredHour: 18}},
		Profile:   model.FlatProfile(0.5),
		Tariff:    model.DefaultTariff(),
		MaxLoadKW: 8,
	}
}

func TestHTTPSolverRoundTrip(t *testing.T) {
	srv := httptest.NewServer(Handler(coresolver.LPSolver{}))
	defer srv.Close()

	cli := NewHTTPSolver(srv.URL, nil)
	asn, err := cli.Solve(context.Background(), testProblem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(asn) != 1 {
		t.Fatalf("expected one assignment, got %d", len(asn))
	}
	if asn[0].Task.ID != "wm" {
		t.Fatalf("expected the original task attached, got %q", asn[0].Task.ID)
	}
	if math.Abs(asn[0].Cost-27.0) > 1e-6 {
		t.Fatalf("expected optimal cost 27.00, got %.4f", asn[0].Cost)
	}
}

func TestHTTPSolverErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cli := NewHTTPSolver(srv.URL, nil)
	if _, err := cli.Solve(context.Background(), testProblem()); err == nil {
		t.Fatal("expected an error for a non-success status")
	}
}

func TestHTTPSolverUnknownTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"assignments":[{"taskId":"ghost","assignedHour":0,"cost":1}]}`))
	}))
	defer srv.Close()

	cli := NewHTTPSolver(srv.URL, nil)
	if _, err := cli.Solve(context.Background(), testProblem()); err == nil {
		t.Fatal("expected an error for an unknown task ID")
	}
}

func TestHTTPSolverOutOfRangeHour(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"assignments":[{"taskId":"wm","assignedHour":24,"cost":1}]}`))
	}))
	defer srv.Close()

	cli := NewHTTPSolver(srv.URL, nil)
	if _, err := cli.Solve(context.Background(), testProblem()); err == nil {
		t.Fatal("expected an error for an out-of-range hour")
	}
}

func TestHTTPSolverMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	cli := NewHTTPSolver(srv.URL, nil)
	if _, err := cli.Solve(context.Background(), testProblem()); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestHTTPSolverContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cli := NewHTTPSolver(srv.URL, nil)
	if _, err := cli.Solve(ctx, testProblem()); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestHandlerRejectsNonPost(t *testing.T) {
	srv := httptest.NewServer(Handler(coresolver.LPSolver{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
