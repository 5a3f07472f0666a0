// Package integrators implements the fixed-step RK4 passes of the
// forward-backward sweep.
package integrators

import (
	"github.com/san-kum/fbsweep/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// RK4 integrates the state forward and the adjoint backward on a fixed grid.
// Controls are only known on the grid, so midpoint stages use the average of
// the two endpoint controls. An RK4 keeps scratch buffers between calls and
// must not be shared between goroutines.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
	xMid           dynamo.State
	uMid           dynamo.Control
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n, m int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
		r.xMid = make(dynamo.State, n)
	}
	if len(r.uMid) != m {
		r.uMid = make(dynamo.Control, m)
	}
}

// Forward overwrites x[1..N] by integrating x' = f(t, x, u) from x[0].
// Nothing but x[0] is read from x.
func (r *RK4) Forward(p dynamo.Problem, g dynamo.Grid, x dynamo.Trajectory, u dynamo.Trajectory, params dynamo.Params) error {
	r.ensureScratch(x.Width(), u.Width())
	h := g.Step

	for i := 0; i < g.Len()-1; i++ {
		t := g.Times[i]
		xi, ui, uNext := x[i], u[i], u[i+1]
		midpoint(r.uMid, ui, uNext)

		if err := stage(r.k1, p.StateDerivative(t, xi, ui, params), "forward", i, t); err != nil {
			return err
		}

		floats.AddScaledTo(r.scratch, xi, h/2, r.k1)
		if err := stage(r.k2, p.StateDerivative(t+h/2, r.scratch, r.uMid, params), "forward", i, t); err != nil {
			return err
		}

		floats.AddScaledTo(r.scratch, xi, h/2, r.k2)
		if err := stage(r.k3, p.StateDerivative(t+h/2, r.scratch, r.uMid, params), "forward", i, t); err != nil {
			return err
		}

		floats.AddScaledTo(r.scratch, xi, h, r.k3)
		if err := stage(r.k4, p.StateDerivative(t+h, r.scratch, uNext, params), "forward", i, t); err != nil {
			return err
		}

		combine(x[i+1], xi, h/6, r.k1, r.k2, r.k3, r.k4)
	}

	return nil
}

// Backward overwrites lambda[0..N-1] by integrating λ' = g(t, x, u, λ) from
// the terminal value lambda[N] toward t = 0. The step stays positive and the
// weighted increment is subtracted.
func (r *RK4) Backward(p dynamo.Problem, g dynamo.Grid, x, u, lambda dynamo.Trajectory, params dynamo.Params) error {
	r.ensureScratch(lambda.Width(), u.Width())
	h := g.Step

	for i := g.Len() - 1; i > 0; i-- {
		t := g.Times[i]
		xi, xPrev := x[i], x[i-1]
		ui, uPrev := u[i], u[i-1]
		li := lambda[i]
		midpoint(r.xMid, xi, xPrev)
		midpoint(r.uMid, ui, uPrev)

		if err := stage(r.k1, p.AdjointDerivative(t, xi, ui, li, params), "backward", i, t); err != nil {
			return err
		}

		floats.AddScaledTo(r.scratch, li, -h/2, r.k1)
		if err := stage(r.k2, p.AdjointDerivative(t-h/2, r.xMid, r.uMid, r.scratch, params), "backward", i, t); err != nil {
			return err
		}

		floats.AddScaledTo(r.scratch, li, -h/2, r.k2)
		if err := stage(r.k3, p.AdjointDerivative(t-h/2, r.xMid, r.uMid, r.scratch, params), "backward", i, t); err != nil {
			return err
		}

		floats.AddScaledTo(r.scratch, li, -h, r.k3)
		if err := stage(r.k4, p.AdjointDerivative(t-h, xPrev, uPrev, r.scratch, params), "backward", i, t); err != nil {
			return err
		}

		combine(lambda[i-1], li, -h/6, r.k1, r.k2, r.k3, r.k4)
	}

	return nil
}

func stage(dst, d []float64, name string, i int, t float64) error {
	if len(d) != len(dst) {
		return &dynamo.StepError{Stage: name, Index: i, Time: t, Wrapped: dynamo.ErrDimensionMismatch}
	}
	copy(dst, d)
	return nil
}

func midpoint(dst, a, b []float64) {
	floats.AddTo(dst, a, b)
	floats.Scale(0.5, dst)
}

// combine writes dst = base + w*(k1 + 2k2 + 2k3 + k4).
func combine(dst, base []float64, w float64, k1, k2, k3, k4 []float64) {
	for j := range dst {
		dst[j] = base[j] + w*(k1[j]+2*k2[j]+2*k3[j]+k4[j])
	}
}
