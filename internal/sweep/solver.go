package sweep

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/san-kum/fbsweep/internal/control"
	"github.com/san-kum/fbsweep/internal/dynamo"
	"github.com/san-kum/fbsweep/internal/integrators"
)

// seedStream is the second PCG word; the first comes from Config.Seed.
const seedStream = 0x9e3779b97f4a7c15

// Observer is notified after every outer iteration.
type Observer interface {
	OnIteration(it Iteration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(it Iteration)

func (f ObserverFunc) OnIteration(it Iteration) { f(it) }

// Result is the outcome of one solve. Times, States, Controls and Adjoints
// all have N+1 rows.
type Result struct {
	Times      []float64
	States     dynamo.Trajectory
	Controls   dynamo.Trajectory
	Adjoints   dynamo.Trajectory
	Iterations int
	Margin     float64
	Converged  bool
	History    []Iteration
}

// Solver runs the forward-backward sweep for one problem. Solve allocates
// all of its working memory per call, so a Solver without observers can be
// shared between goroutines.
type Solver struct {
	problem   dynamo.Problem
	cfg       Config
	observers []Observer
}

// New validates cfg against the problem shape. Configuration errors wrap
// dynamo.ErrConfig.
func New(problem dynamo.Problem, cfg Config) (*Solver, error) {
	if problem == nil {
		return nil, fmt.Errorf("%w: nil problem", dynamo.ErrConfig)
	}
	cfg.FreeAdjointFinal = append([]int(nil), cfg.FreeAdjointFinal...)
	if cfg.Bounds != nil {
		cfg.Bounds = append(control.Bounds{}, cfg.Bounds...)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", dynamo.ErrConfig, err)
	}
	return &Solver{problem: problem, cfg: cfg}, nil
}

func (s *Solver) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Solver) Config() Config { return s.cfg }

// buffers is one full iterate of the sweep.
type buffers struct {
	x, u, lambda dynamo.Trajectory
}

// Solve iterates until the state, control and adjoint trajectories all pass
// the relative-change test with tolerance opts.Tolerance. When the
// iteration cap is reached it returns the last iterate together with an
// error wrapping dynamo.ErrNotConverged.
func (s *Solver) Solve(ctx context.Context, x0 dynamo.State, T float64, params dynamo.Params, opts SolveOptions) (*Result, error) {
	bounds, overrides, err := s.validateSolve(x0, T, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dynamo.ErrConfig, err)
	}

	grid := dynamo.NewGrid(T, opts.Step)
	rows := grid.Len()
	src := rand.NewPCG(uint64(s.cfg.Seed), seedStream)

	// cur is the previous iterate, next receives the new one; they swap
	// after every iteration so old and new never alias.
	cur := buffers{
		x:      dynamo.NewTrajectory(rows, s.cfg.NumStates),
		u:      control.InitialGuess(bounds, rows, src),
		lambda: dynamo.NewTrajectory(rows, s.cfg.NumStates),
	}
	next := buffers{
		x:      dynamo.NewTrajectory(rows, s.cfg.NumStates),
		u:      dynamo.NewTrajectory(rows, s.cfg.NumControls),
		lambda: dynamo.NewTrajectory(rows, s.cfg.NumStates),
	}
	copy(cur.x[0], x0)
	copy(next.x[0], x0)

	integ := integrators.NewRK4()
	result := &Result{Times: grid.Times}

	for iter := 1; iter <= s.cfg.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			s.fill(result, cur)
			return result, ctx.Err()
		default:
		}

		if err := s.iterate(integ, grid, &cur, &next, params, overrides); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iter, err)
		}

		it := Iteration{
			Number:        iter,
			StateMargin:   Margin(next.x, cur.x, opts.Tolerance),
			ControlMargin: Margin(next.u, cur.u, opts.Tolerance),
			AdjointMargin: Margin(next.lambda, cur.lambda, opts.Tolerance),
		}
		result.History = append(result.History, it)
		result.Iterations = iter
		result.Margin = it.Margin()
		for _, o := range s.observers {
			o.OnIteration(it)
		}

		cur, next = next, cur

		if it.Converged() {
			result.Converged = true
			s.fill(result, cur)
			return result, nil
		}
	}

	s.fill(result, cur)
	return result, fmt.Errorf("%w after %d iterations (margin %.3g)", dynamo.ErrNotConverged, result.Iterations, result.Margin)
}

// iterate computes next from cur: forward pass under cur's control,
// terminal adjoint, backward pass, then the damped control update.
func (s *Solver) iterate(integ *integrators.RK4, grid dynamo.Grid, cur, next *buffers, params dynamo.Params, overrides map[int]float64) error {
	if err := integ.Forward(s.problem, grid, next.x, cur.u, params); err != nil {
		return err
	}

	if err := s.terminal(next.x, next.lambda[len(next.lambda)-1], params, overrides); err != nil {
		return err
	}

	if err := integ.Backward(s.problem, grid, next.x, cur.u, next.lambda, params); err != nil {
		return err
	}

	for i, t := range grid.Times {
		candidate := s.problem.UpdateControl(t, next.x[i], next.lambda[i], params)
		if len(candidate) != s.cfg.NumControls {
			return &dynamo.StepError{Stage: "update", Index: i, Time: t, Wrapped: dynamo.ErrDimensionMismatch}
		}
		control.Blend(next.u[i], s.cfg.Relaxation, candidate, cur.u[i])
	}

	if !next.x.IsValid() || !next.u.IsValid() || !next.lambda.IsValid() {
		return dynamo.ErrDiverged
	}
	return nil
}

// terminal writes the transversality value into dst, then applies the
// externally supplied overrides.
func (s *Solver) terminal(x dynamo.Trajectory, dst []float64, params dynamo.Params, overrides map[int]float64) error {
	if tr, ok := s.problem.(dynamo.Transversality); ok {
		v := tr.Terminal(x, params)
		if len(v) != len(dst) {
			return &dynamo.StepError{Stage: "terminal", Index: len(x) - 1, Wrapped: dynamo.ErrDimensionMismatch}
		}
		copy(dst, v)
	} else {
		for k := range dst {
			dst[k] = 0
		}
	}
	for idx, v := range overrides {
		dst[idx] = v
	}
	return nil
}

func (s *Solver) validateSolve(x0 dynamo.State, T float64, opts SolveOptions) (control.Bounds, map[int]float64, error) {
	if T <= 0 {
		return nil, nil, fmt.Errorf("final time must be positive, got %g", T)
	}
	if opts.Step <= 0 {
		return nil, nil, fmt.Errorf("step must be positive, got %g", opts.Step)
	}
	if opts.Tolerance <= 0 {
		return nil, nil, fmt.Errorf("tolerance must be positive, got %g", opts.Tolerance)
	}
	if len(x0) != s.cfg.NumStates {
		return nil, nil, fmt.Errorf("%w: initial state has %d components, want %d", dynamo.ErrDimensionMismatch, len(x0), s.cfg.NumStates)
	}

	bounds := s.cfg.Bounds
	if opts.Bounds != nil {
		bounds = opts.Bounds
	}
	if err := bounds.ValidateFor(s.cfg.NumControls); err != nil {
		return nil, nil, err
	}

	if len(opts.Theta) != len(s.cfg.FreeAdjointFinal) {
		return nil, nil, fmt.Errorf("%w: %d values for %d free indices", dynamo.ErrFreeAdjoint, len(opts.Theta), len(s.cfg.FreeAdjointFinal))
	}
	overrides := make(map[int]float64, len(opts.Theta))
	for j, idx := range s.cfg.FreeAdjointFinal {
		overrides[idx] = opts.Theta[j]
	}
	return bounds, overrides, nil
}

func (s *Solver) fill(result *Result, b buffers) {
	result.States = b.x
	result.Controls = b.u
	result.Adjoints = b.lambda
}
