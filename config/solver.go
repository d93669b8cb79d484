package config

import "fmt"

// Solver modes.
const (
	SolverModeNone  = "none"
	SolverModeLocal = "local"
	SolverModeHTTP  = "http"
)

// SolverConfig selects the exact-solver backend tried before the heuristic.
type SolverConfig struct {
	// Mode is "none" (heuristic only), "local" (in-process LP) or "http"
	// (remote endpoint).
	Mode string `json:"mode"`
	// Endpoint is the remote solver URL, required in http mode.
	Endpoint string `json:"endpoint"`
	// TimeoutSeconds bounds the single solver attempt.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = SolverModeLocal
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c SolverConfig) Validate() error {
	switch c.Mode {
	case SolverModeNone, SolverModeLocal:
	case SolverModeHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("solver endpoint is required in http mode")
		}
	default:
		return fmt.Errorf("unknown solver mode %s", c.Mode)
	}
	return nil
}
