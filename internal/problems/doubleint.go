package problems

import "github.com/san-kum/fbsweep/internal/dynamo"

// DoubleIntegrator minimises ∫u²/2 dt with x1' = x2, x2' = u. The adjoint
// is λ1' = 0, λ2' = -λ1 and u = -λ2. Fixed end states leave both terminal
// adjoints free; they are meant to be supplied as free terminal values and
// searched by an outer root-finder.
type DoubleIntegrator struct{}

func NewDoubleIntegrator() *DoubleIntegrator { return &DoubleIntegrator{} }

func (DoubleIntegrator) StateDerivative(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) dynamo.State {
	return dynamo.State{x[1], u[0]}
}

func (DoubleIntegrator) AdjointDerivative(t float64, x dynamo.State, u dynamo.Control, lambda dynamo.State, p dynamo.Params) dynamo.State {
	return dynamo.State{0, -lambda[0]}
}

func (DoubleIntegrator) UpdateControl(t float64, x, lambda dynamo.State, p dynamo.Params) dynamo.Control {
	return dynamo.Control{-lambda[1]}
}

// RestToRest returns the terminal adjoints that steer (x1, 0) at t = 0 to
// rest at the origin at t = T: u(t) = 12·x1·t/T³ - 6·x1/T², λ(T) = (12·x1/T³, -6·x1/T²).
func (DoubleIntegrator) RestToRest(x1, T float64) []float64 {
	return []float64{12 * x1 / (T * T * T), -6 * x1 / (T * T)}
}

func (DoubleIntegrator) RunningCost(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) float64 {
	return u[0] * u[0] / 2
}

func (DoubleIntegrator) TerminalCost(x dynamo.State, p dynamo.Params) float64 { return 0 }
