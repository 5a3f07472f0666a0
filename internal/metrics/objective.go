package metrics

import (
	"github.com/san-kum/fbsweep/internal/dynamo"
	"github.com/san-kum/fbsweep/internal/sweep"
	"gonum.org/v1/gonum/integrate"
)

// Objective evaluates J = ∫L dt + Φ(x(T)) along the result.
type Objective struct {
	name    string
	problem dynamo.Objective
	params  dynamo.Params
}

func NewObjective(problem dynamo.Objective, params dynamo.Params) *Objective {
	return &Objective{name: "objective", problem: problem, params: params}
}

func (o *Objective) Name() string { return o.name }

func (o *Objective) Compute(r *sweep.Result) float64 {
	n := len(r.Times)
	if n == 0 {
		return 0
	}
	terminal := o.problem.TerminalCost(r.States[n-1], o.params)
	if n < 2 {
		return terminal
	}

	f := make([]float64, n)
	for i, t := range r.Times {
		f[i] = o.problem.RunningCost(t, r.States[i], r.Controls[i], o.params)
	}
	return integrate.Trapezoidal(r.Times, f) + terminal
}
