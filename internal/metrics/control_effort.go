package metrics

import (
	"github.com/san-kum/fbsweep/internal/sweep"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// ControlEffort is ∫ Σ_k u_k(t)² dt by the trapezoidal rule.
type ControlEffort struct {
	name string
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{name: "control_effort"}
}

func (c *ControlEffort) Name() string { return c.name }

func (c *ControlEffort) Compute(r *sweep.Result) float64 {
	if len(r.Times) < 2 {
		return 0
	}
	f := make([]float64, len(r.Times))
	for i, u := range r.Controls {
		f[i] = floats.Dot(u, u)
	}
	return integrate.Trapezoidal(r.Times, f)
}
