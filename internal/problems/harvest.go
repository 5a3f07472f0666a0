package problems

import (
	"github.com/san-kum/fbsweep/internal/control"
	"github.com/san-kum/fbsweep/internal/dynamo"
)

// Harvest maximises the profit ∫(p·u·x - c·u²/2) dt of harvesting a
// logistically growing stock x' = r·x·(1 - x/K) - u·x with effort
// u ∈ [0, "umax"].
//
// Params: "r" (growth, default 1), "K" (capacity, default 1), "p" (price,
// default 1), "c" (effort cost, default 0.5), "umax" (default 1).
type Harvest struct{}

func NewHarvest() *Harvest { return &Harvest{} }

func (Harvest) StateDerivative(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) dynamo.State {
	r, k := p.Get("r", 1), p.Get("K", 1)
	return dynamo.State{r*x[0]*(1-x[0]/k) - u[0]*x[0]}
}

func (Harvest) AdjointDerivative(t float64, x dynamo.State, u dynamo.Control, lambda dynamo.State, p dynamo.Params) dynamo.State {
	r, k, price := p.Get("r", 1), p.Get("K", 1), p.Get("p", 1)
	return dynamo.State{-(price*u[0] + lambda[0]*(r-2*r*x[0]/k-u[0]))}
}

func (Harvest) UpdateControl(t float64, x, lambda dynamo.State, p dynamo.Params) dynamo.Control {
	price, c := p.Get("p", 1), p.Get("c", 0.5)
	return dynamo.Control{control.Clip((price-lambda[0])*x[0]/c, 0, p.Get("umax", 1))}
}

// RunningCost is the negated profit rate, so lower is better.
func (Harvest) RunningCost(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) float64 {
	return p.Get("c", 0.5)*u[0]*u[0]/2 - p.Get("p", 1)*u[0]*x[0]
}

func (Harvest) TerminalCost(x dynamo.State, p dynamo.Params) float64 { return 0 }
