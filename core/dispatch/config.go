package dispatch

import (
	"fmt"
	"time"
)

// Config defines optimizer settings.
type Config struct {
	// SolveTimeoutMS bounds a single LP solve. Zero selects the default.
	SolveTimeoutMS int `json:"solve_timeout_ms"`
	// Tolerance is passed to the simplex solver.
	Tolerance float64 `json:"tolerance"`
}

const (
	defaultSolveTimeout = 5 * time.Second
	defaultTolerance    = 1e-7
)

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SolveTimeoutMS == 0 {
		c.SolveTimeoutMS = int(defaultSolveTimeout / time.Millisecond)
	}
	if c.Tolerance == 0 {
		c.Tolerance = defaultTolerance
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.SolveTimeoutMS < 0 {
		return fmt.Errorf("dispatch.solve_timeout_ms must not be negative")
	}
	if c.Tolerance < 0 || c.Tolerance > 1e-2 {
		return fmt.Errorf("dispatch.tolerance must be within [0, 0.01]")
	}
	return nil
}

// SolveTimeout returns the solve budget.
func (c Config) SolveTimeout() time.Duration {
	if c.SolveTimeoutMS <= 0 {
		return defaultSolveTimeout
	}
	return time.Duration(c.SolveTimeoutMS) * time.Millisecond
}

func (c Config) tolerance() float64 {
	if c.Tolerance <= 0 {
		return defaultTolerance
	}
	return c.Tolerance
}
