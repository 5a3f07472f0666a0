package problems

import (
	"math"

	"github.com/san-kum/fbsweep/internal/dynamo"
)

// Payoff minimises ∫ a·u²/2 dt - b·x(T) with x' = x + u. The terminal
// payoff gives the transversality condition λ(T) = -b; with λ' = -λ and
// u = -λ/a the optimum is u(t) = (b/a)·e^(T-t).
//
// Params: "a" (control cost, default 1), "b" (payoff weight, default 1).
type Payoff struct{}

func NewPayoff() *Payoff { return &Payoff{} }

func (Payoff) StateDerivative(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) dynamo.State {
	return dynamo.State{x[0] + u[0]}
}

func (Payoff) AdjointDerivative(t float64, x dynamo.State, u dynamo.Control, lambda dynamo.State, p dynamo.Params) dynamo.State {
	return dynamo.State{-lambda[0]}
}

func (Payoff) UpdateControl(t float64, x, lambda dynamo.State, p dynamo.Params) dynamo.Control {
	return dynamo.Control{-lambda[0] / p.Get("a", 1)}
}

func (Payoff) Terminal(x dynamo.Trajectory, p dynamo.Params) dynamo.State {
	return dynamo.State{-p.Get("b", 1)}
}

func (Payoff) OptimalControl(t, T float64, p dynamo.Params) float64 {
	return p.Get("b", 1) / p.Get("a", 1) * math.Exp(T-t)
}

func (Payoff) RunningCost(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) float64 {
	return p.Get("a", 1) * u[0] * u[0] / 2
}

func (Payoff) TerminalCost(x dynamo.State, p dynamo.Params) float64 {
	return -p.Get("b", 1) * x[0]
}
