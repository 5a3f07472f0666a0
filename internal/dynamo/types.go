package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

func (c Control) Clone() Control {
	out := make(Control, len(c))
	copy(out, c)
	return out
}

// Params is the problem parameter bag. The solver passes it to every
// callback untouched.
type Params map[string]float64

// Get returns the named parameter or def when it is absent.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Trajectory holds one vector per grid instant. Rows are assignable to both
// State and Control.
type Trajectory [][]float64

// NewTrajectory allocates a zeroed trajectory backed by one contiguous slice.
func NewTrajectory(rows, width int) Trajectory {
	backing := make([]float64, rows*width)
	tr := make(Trajectory, rows)
	for i := range tr {
		tr[i] = backing[i*width : (i+1)*width : (i+1)*width]
	}
	return tr
}

func (tr Trajectory) Width() int {
	if len(tr) == 0 {
		return 0
	}
	return len(tr[0])
}

func (tr Trajectory) Clone() Trajectory {
	c := NewTrajectory(len(tr), tr.Width())
	c.CopyFrom(tr)
	return c
}

// CopyFrom overwrites tr row by row with src. Both must share the same shape.
func (tr Trajectory) CopyFrom(src Trajectory) {
	for i := range tr {
		copy(tr[i], src[i])
	}
}

// Component extracts column k as a time series.
func (tr Trajectory) Component(k int) []float64 {
	out := make([]float64, len(tr))
	for i, row := range tr {
		out[i] = row[k]
	}
	return out
}

func (tr Trajectory) IsValid() bool {
	for _, row := range tr {
		if !State(row).IsValid() {
			return false
		}
	}
	return true
}

// Grid is the time discretisation of one solve: N+1 instants from 0 to T
// inclusive with constant spacing Step = T/N.
type Grid struct {
	Times []float64
	Step  float64
}

// NewGrid builds the grid for final time T and requested step h. The number
// of intervals is round(T/h), at least one.
func NewGrid(T, h float64) Grid {
	n := int(math.Round(T / h))
	if n < 1 {
		n = 1
	}
	times := make([]float64, n+1)
	for i := range times {
		times[i] = T * float64(i) / float64(n)
	}
	times[n] = T
	return Grid{Times: times, Step: T / float64(n)}
}

// Len returns the number of grid instants, N+1.
func (g Grid) Len() int { return len(g.Times) }

// Problem is the capability set the sweep needs from an optimal-control
// problem.
type Problem interface {
	// StateDerivative returns x' = f(t, x, u).
	StateDerivative(t float64, x State, u Control, p Params) State
	// AdjointDerivative returns λ' = -H_x(t, x, u, λ).
	AdjointDerivative(t float64, x State, u Control, lambda State, p Params) State
	// UpdateControl returns the raw control candidate from the stationarity condition.
	UpdateControl(t float64, x State, lambda State, p Params) Control
}

// Transversality is implemented by problems with a terminal payoff. Problems
// without it get a zero terminal adjoint.
type Transversality interface {
	Terminal(x Trajectory, p Params) State
}

// Objective is implemented by problems that can evaluate their cost
// functional J = ∫L dt + Φ(x(T)). J is always minimised: problems that
// maximise a reward report its negation. The sweep itself never calls it.
type Objective interface {
	RunningCost(t float64, x State, u Control, p Params) float64
	TerminalCost(x State, p Params) float64
}

// Funcs adapts plain functions to Problem and Transversality. Final may be
// nil, in which case the terminal adjoint is zero.
type Funcs struct {
	State   func(t float64, x State, u Control, p Params) State
	Adjoint func(t float64, x State, u Control, lambda State, p Params) State
	Update  func(t float64, x State, lambda State, p Params) Control
	Final   func(x Trajectory, p Params) State
}

func (f Funcs) StateDerivative(t float64, x State, u Control, p Params) State {
	return f.State(t, x, u, p)
}

func (f Funcs) AdjointDerivative(t float64, x State, u Control, lambda State, p Params) State {
	return f.Adjoint(t, x, u, lambda, p)
}

func (f Funcs) UpdateControl(t float64, x State, lambda State, p Params) Control {
	return f.Update(t, x, lambda, p)
}

func (f Funcs) Terminal(x Trajectory, p Params) State {
	if f.Final == nil {
		return make(State, x.Width())
	}
	return f.Final(x, p)
}
