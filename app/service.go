// Package app assembles the optimization service from its configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apioptimize "github.com/kilianp07/optiwatt/api/optimize"
	"github.com/kilianp07/optiwatt/config"
	"github.com/kilianp07/optiwatt/core/events"
	corehistory "github.com/kilianp07/optiwatt/core/history"
	coremetrics "github.com/kilianp07/optiwatt/core/metrics"
	"github.com/kilianp07/optiwatt/core/model"
	"github.com/kilianp07/optiwatt/core/solver"
	infrahistory "github.com/kilianp07/optiwatt/infra/history"
	"github.com/kilianp07/optiwatt/infra/logger"
	"github.com/kilianp07/optiwatt/infra/metrics"
	"github.com/kilianp07/optiwatt/infra/mqtt"
	infrasolver "github.com/kilianp07/optiwatt/infra/solver"
	"github.com/kilianp07/optiwatt/internal/eventbus"
)

// Service orchestrates the solver gateway and its HTTP surface.
type Service struct {
	Gateway *solver.Gateway

	api         *apioptimize.Server
	addr        string
	bus         *eventbus.Bus
	store       corehistory.Store
	publisher   mqtt.Publisher
	log         logger.Logger
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var store corehistory.Store
	var err error
	switch cfg.History.Backend {
	case "sqlite":
		store, err = infrahistory.NewSQLiteStore(cfg.History.Path)
	case "jsonl":
		store, err = infrahistory.NewJSONLStore(cfg.History.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}

	var exact solver.ExactSolver
	switch cfg.Solver.Mode {
	case config.SolverModeLocal:
		exact = solver.LPSolver{}
	case config.SolverModeHTTP:
		exact = infrasolver.NewHTTPSolver(cfg.Solver.Endpoint, logger.New("http-solver"))
	}

	var publisher mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher, err = mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	bus := eventbus.New()
	timeout := time.Duration(cfg.Solver.TimeoutSeconds) * time.Second
	gw := solver.NewGateway(exact, timeout, sink, bus, logg)

	profile := model.FlatProfile(cfg.Engine.DefaultBaseLoadKW)
	api := apioptimize.NewServer(gw, profile, cfg.Tariff.Table(), cfg.Engine.MaxLoadKW, store, publisher, bus, logg, cfg.Solver.Mode)

	return &Service{
		Gateway:     gw,
		api:         api,
		addr:        cfg.API.Addr,
		bus:         bus,
		store:       store,
		publisher:   publisher,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.watchEvents(ctx)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.addr, Handler: s.api.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("api listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// watchEvents logs solver strategy decisions published on the bus.
func (s *Service) watchEvents(ctx context.Context) {
	ch := s.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case events.StrategyEvent:
				if e.Err != nil {
					s.log.Warnf("run %s: %s: %v", e.RunID, e.Action, e.Err)
				} else {
					s.log.Debugf("run %s: %s", e.RunID, e.Action)
				}
			case events.ScheduleEvent:
				s.log.Debugf("run %s: schedule for %s pushed, start hour %d", e.RunID, e.TaskID, e.Hour)
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			return err
		}
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
