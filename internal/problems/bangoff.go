package problems

import (
	"github.com/san-kum/fbsweep/internal/control"
	"github.com/san-kum/fbsweep/internal/dynamo"
)

// BangOff maximises ∫(x - u²/2) dt with x' = u and u ∈ [Lower, Upper].
// H_x = 1, so λ' = -1 with λ(T) = 0, and the stationarity condition u = λ is
// clipped into the bounds. The optimum is u(t) = clip(T - t).
type BangOff struct {
	Bound control.Bound
}

func NewBangOff() *BangOff {
	return &BangOff{Bound: control.Bound{Lower: -1, Upper: 1}}
}

func (b *BangOff) StateDerivative(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) dynamo.State {
	return dynamo.State{u[0]}
}

func (b *BangOff) AdjointDerivative(t float64, x dynamo.State, u dynamo.Control, lambda dynamo.State, p dynamo.Params) dynamo.State {
	return dynamo.State{-1}
}

func (b *BangOff) UpdateControl(t float64, x, lambda dynamo.State, p dynamo.Params) dynamo.Control {
	return dynamo.Control{b.Bound.Clip(lambda[0])}
}

// OptimalControl is the analytic optimum at time t for horizon T.
func (b *BangOff) OptimalControl(t, T float64) float64 {
	return b.Bound.Clip(T - t)
}

// RunningCost negates the maximised reward x - u²/2.
func (b *BangOff) RunningCost(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) float64 {
	return u[0]*u[0]/2 - x[0]
}

func (b *BangOff) TerminalCost(x dynamo.State, p dynamo.Params) float64 { return 0 }
