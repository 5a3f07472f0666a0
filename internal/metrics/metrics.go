// Package metrics evaluates scalar figures of a finished sweep: control
// effort, terminal state size and, for problems that define one, the value
// of the cost functional.
package metrics

import (
	"github.com/san-kum/fbsweep/internal/dynamo"
	"github.com/san-kum/fbsweep/internal/sweep"
)

type Metric interface {
	Name() string
	Compute(r *sweep.Result) float64
}

// Evaluate computes every metric on r, keyed by name.
func Evaluate(r *sweep.Result, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Compute(r)
	}
	return out
}

// Default returns the metrics that apply to problem. The objective is only
// included when the problem implements dynamo.Objective.
func Default(problem dynamo.Problem, params dynamo.Params) []Metric {
	ms := []Metric{NewControlEffort(), NewTerminalNorm()}
	if obj, ok := problem.(dynamo.Objective); ok {
		ms = append(ms, NewObjective(obj, params))
	}
	return ms
}
