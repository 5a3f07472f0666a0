package problems

import (
	"math"

	"github.com/san-kum/fbsweep/internal/dynamo"
)

// LQR minimises ∫(x² + u²)/2 dt with x' = u. The adjoint is λ' = -x with
// λ(T) = 0 and the stationarity condition gives u = -λ.
type LQR struct{}

func NewLQR() *LQR { return &LQR{} }

func (LQR) StateDerivative(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) dynamo.State {
	return dynamo.State{u[0]}
}

func (LQR) AdjointDerivative(t float64, x dynamo.State, u dynamo.Control, lambda dynamo.State, p dynamo.Params) dynamo.State {
	return dynamo.State{-x[0]}
}

func (LQR) UpdateControl(t float64, x, lambda dynamo.State, p dynamo.Params) dynamo.Control {
	return dynamo.Control{-lambda[0]}
}

// Exact returns x, u and λ of the closed-form optimum:
// x = x0·cosh(T-t)/cosh(T), λ = x0·sinh(T-t)/cosh(T), u = -λ.
func (LQR) Exact(t, T, x0 float64) (x, u, lambda float64) {
	c := math.Cosh(T)
	x = x0 * math.Cosh(T-t) / c
	lambda = x0 * math.Sinh(T-t) / c
	return x, -lambda, lambda
}

func (LQR) RunningCost(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) float64 {
	return (x[0]*x[0] + u[0]*u[0]) / 2
}

func (LQR) TerminalCost(x dynamo.State, p dynamo.Params) float64 { return 0 }

// Cost is the optimal value x0²·tanh(T)/2.
func (LQR) Cost(T, x0 float64) float64 {
	return x0 * x0 * math.Tanh(T) / 2
}
