package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/optiwatt/config"
	"github.com/kilianp07/optiwatt/core/scheduler"
	"github.com/kilianp07/optiwatt/core/solver"
	"github.com/kilianp07/optiwatt/infra/logger"
	infrasolver "github.com/kilianp07/optiwatt/infra/solver"
)

var taskFilePath string

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run a one-shot optimization from a task file",
	RunE:  optimizeOnce,
}

func init() {
	optimizeCmd.Flags().StringVarP(&taskFilePath, "tasks", "t", "tasks.yaml", "task file (yaml or json)")
	rootCmd.AddCommand(optimizeCmd)
}

func optimizeOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tf, err := scheduler.LoadTaskFile(taskFilePath)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	logg := logger.New("optimize-command")
	var exact solver.ExactSolver
	switch cfg.Solver.Mode {
	case config.SolverModeLocal:
		exact = solver.LPSolver{}
	case config.SolverModeHTTP:
		exact = infrasolver.NewHTTPSolver(cfg.Solver.Endpoint, logg)
	}
	timeout := time.Duration(cfg.Solver.TimeoutSeconds) * time.Second
	gw := solver.NewGateway(exact, timeout, nil, nil, logg)

	p := solver.Problem{
		Profile:   tf.Profile(),
		Tariff:    cfg.Tariff.Table(),
		MaxLoadKW: tf.MaxLoadKW,
	}
	if p.MaxLoadKW <= 0 {
		p.MaxLoadKW = cfg.Engine.MaxLoadKW
	}
	for _, e := range tf.Tasks {
		p.Tasks = append(p.Tasks, e.Task())
	}

	res, err := gw.Optimize(context.Background(), p)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
