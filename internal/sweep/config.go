package sweep

import (
	"fmt"

	"github.com/san-kum/fbsweep/internal/control"
	"github.com/san-kum/fbsweep/internal/dynamo"
)

const (
	DefaultRelaxation    = 0.5
	DefaultMaxIterations = 10000
	DefaultStep          = 1e-3
	DefaultTolerance     = 1e-4
)

// Config fixes the shape of a problem and how the sweep iterates on it.
type Config struct {
	// Relaxation is the weight of the raw control candidate in the damped
	// update, in [0, 1].
	Relaxation  float64
	NumControls int
	NumStates   int
	// Bounds has one entry per control. Nil means unconstrained.
	Bounds control.Bounds
	// FreeAdjointFinal lists state indices whose terminal adjoint is
	// supplied per solve instead of by the transversality condition.
	FreeAdjointFinal []int
	MaxIterations    int
	// Seed drives the randomized initial control guess.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		Relaxation:    DefaultRelaxation,
		NumControls:   1,
		NumStates:     1,
		MaxIterations: DefaultMaxIterations,
	}
}

func (c *Config) validate() error {
	if c.NumStates < 1 {
		return fmt.Errorf("number of states must be positive, got %d", c.NumStates)
	}
	if c.NumControls < 1 {
		return fmt.Errorf("number of controls must be positive, got %d", c.NumControls)
	}
	if c.Relaxation < 0 || c.Relaxation > 1 {
		return fmt.Errorf("relaxation must be in [0, 1], got %g", c.Relaxation)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Bounds == nil {
		c.Bounds = control.Unbounded(c.NumControls)
	}
	if err := c.Bounds.ValidateFor(c.NumControls); err != nil {
		return err
	}

	seen := make(map[int]bool, len(c.FreeAdjointFinal))
	for _, idx := range c.FreeAdjointFinal {
		if idx < 0 || idx >= c.NumStates {
			return fmt.Errorf("%w: index %d out of range for %d states", dynamo.ErrFreeAdjoint, idx, c.NumStates)
		}
		if seen[idx] {
			return fmt.Errorf("%w: index %d listed twice", dynamo.ErrFreeAdjoint, idx)
		}
		seen[idx] = true
	}
	return nil
}

// SolveOptions are the per-call inputs of Solve besides x0, T and params.
type SolveOptions struct {
	Step      float64
	Tolerance float64
	// Bounds, when set, replaces the configured bounds for this call only.
	Bounds control.Bounds
	// Theta holds the terminal adjoint values for Config.FreeAdjointFinal,
	// in the same order.
	Theta []float64
}

func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		Step:      DefaultStep,
		Tolerance: DefaultTolerance,
	}
}
