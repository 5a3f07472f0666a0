package sweep_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fbsweep/internal/control"
	"github.com/san-kum/fbsweep/internal/dynamo"
	"github.com/san-kum/fbsweep/internal/problems"
	"github.com/san-kum/fbsweep/internal/sweep"
)

// countingProblem records how often the solver calls into it.
type countingProblem struct {
	calls int
}

func (c *countingProblem) StateDerivative(t float64, x dynamo.State, u dynamo.Control, p dynamo.Params) dynamo.State {
	c.calls++
	return dynamo.State{u[0]}
}

func (c *countingProblem) AdjointDerivative(t float64, x dynamo.State, u dynamo.Control, l dynamo.State, p dynamo.Params) dynamo.State {
	c.calls++
	return dynamo.State{-1}
}

func (c *countingProblem) UpdateControl(t float64, x, l dynamo.State, p dynamo.Params) dynamo.Control {
	c.calls++
	return dynamo.Control{l[0]}
}

func solveOptions(step, tol float64) sweep.SolveOptions {
	opts := sweep.DefaultSolveOptions()
	opts.Step = step
	opts.Tolerance = tol
	return opts
}

var _ = Describe("Solver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("configuration", func() {
		It("applies the documented defaults", func() {
			cfg := sweep.DefaultConfig()
			Expect(cfg.Relaxation).To(Equal(0.5))
			Expect(cfg.NumControls).To(Equal(1))
			Expect(cfg.NumStates).To(Equal(1))
			Expect(cfg.FreeAdjointFinal).To(BeEmpty())

			opts := sweep.DefaultSolveOptions()
			Expect(opts.Step).To(Equal(1e-3))
			Expect(opts.Tolerance).To(Equal(1e-4))

			s, err := sweep.New(problems.NewLQR(), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Config().Bounds).To(Equal(control.Unbounded(1)))
		})

		It("rejects reversed bounds before any integration", func() {
			p := &countingProblem{}
			cfg := sweep.DefaultConfig()
			cfg.Bounds = control.Bounds{{Lower: 1.0, Upper: 0.0}}

			_, err := sweep.New(p, cfg)
			Expect(err).To(MatchError(dynamo.ErrConfig))
			Expect(err).To(MatchError(dynamo.ErrInvalidBounds))
			Expect(p.calls).To(BeZero())
		})

		It("rejects a bounds list that does not match the control count", func() {
			cfg := sweep.DefaultConfig()
			cfg.Bounds = control.Bounds{{Lower: 0, Upper: 1}, {Lower: 0, Upper: 1}}

			_, err := sweep.New(problems.NewLQR(), cfg)
			Expect(err).To(MatchError(dynamo.ErrBoundsLength))
		})

		DescribeTable("rejects invalid settings",
			func(mutate func(*sweep.Config)) {
				cfg := sweep.DefaultConfig()
				mutate(&cfg)
				_, err := sweep.New(problems.NewLQR(), cfg)
				Expect(err).To(MatchError(dynamo.ErrConfig))
			},
			Entry("relaxation above one", func(c *sweep.Config) { c.Relaxation = 1.5 }),
			Entry("negative relaxation", func(c *sweep.Config) { c.Relaxation = -0.1 }),
			Entry("zero states", func(c *sweep.Config) { c.NumStates = 0 }),
			Entry("zero controls", func(c *sweep.Config) { c.NumControls = 0 }),
			Entry("zero iteration cap", func(c *sweep.Config) { c.MaxIterations = 0 }),
			Entry("free index out of range", func(c *sweep.Config) { c.FreeAdjointFinal = []int{1} }),
			Entry("repeated free index", func(c *sweep.Config) { c.NumStates = 2; c.FreeAdjointFinal = []int{0, 0} }),
			Entry("empty bounds list", func(c *sweep.Config) { c.Bounds = control.Bounds{} }),
		)

		It("validates the bounds override at solve entry", func() {
			s, err := sweep.New(problems.NewLQR(), sweep.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			opts := solveOptions(0.1, 1e-3)
			opts.Bounds = control.Bounds{{Lower: 0, Upper: 1}, {Lower: 0, Upper: 1}}
			_, err = s.Solve(ctx, dynamo.State{1}, 1, nil, opts)
			Expect(err).To(MatchError(dynamo.ErrBoundsLength))

			opts.Bounds = control.Bounds{{Lower: 2, Upper: 1}}
			_, err = s.Solve(ctx, dynamo.State{1}, 1, nil, opts)
			Expect(err).To(MatchError(dynamo.ErrInvalidBounds))
		})

		It("requires one terminal value per free index", func() {
			cfg := sweep.DefaultConfig()
			cfg.NumStates = 2
			cfg.FreeAdjointFinal = []int{0, 1}
			s, err := sweep.New(problems.NewDoubleIntegrator(), cfg)
			Expect(err).NotTo(HaveOccurred())

			opts := solveOptions(0.1, 1e-3)
			opts.Theta = []float64{1}
			_, err = s.Solve(ctx, dynamo.State{1, 0}, 1, nil, opts)
			Expect(err).To(MatchError(dynamo.ErrFreeAdjoint))
		})

		It("rejects an initial state of the wrong width", func() {
			s, err := sweep.New(problems.NewLQR(), sweep.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Solve(ctx, dynamo.State{1, 2}, 1, nil, solveOptions(0.1, 1e-3))
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})
	})

	Describe("initial guess", func() {
		It("samples every control inside its bounds", func() {
			cfg := sweep.DefaultConfig()
			cfg.Bounds = control.Bounds{{Lower: 0.0, Upper: 1.0}}
			cfg.Relaxation = 0
			cfg.MaxIterations = 1
			s, err := sweep.New(problems.NewLQR(), cfg)
			Expect(err).NotTo(HaveOccurred())

			// With zero relaxation the control never moves off the guess.
			res, err := s.Solve(ctx, dynamo.State{1}, 1, nil, solveOptions(0.1, 1e-3))
			Expect(err).To(MatchError(dynamo.ErrNotConverged))
			Expect(res.Controls).To(HaveLen(11))
			for _, row := range res.Controls {
				Expect(row[0]).To(And(BeNumerically(">=", 0.0), BeNumerically("<=", 1.0)))
			}
		})
	})

	Describe("bang-off toy problem", func() {
		It("converges to u(t) = 1 - t", func() {
			def, err := problems.NewRegistry().Get("bangoff")
			Expect(err).NotTo(HaveOccurred())
			s, err := sweep.New(def.Problem, def.Config())
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Solve(ctx, dynamo.State{0}, 1, nil, solveOptions(1e-2, 1e-3))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())
			Expect(res.Margin).To(BeNumerically(">=", 0))
			Expect(res.Times).To(HaveLen(101))
			Expect(res.States).To(HaveLen(101))
			Expect(res.Controls).To(HaveLen(101))
			Expect(res.Adjoints).To(HaveLen(101))

			for i, t := range res.Times {
				Expect(res.Adjoints[i][0]).To(BeNumerically("~", 1-t, 1e-9))
				Expect(res.Controls[i][0]).To(BeNumerically("~", 1-t, 1e-2))
				Expect(res.States[i][0]).To(BeNumerically("~", t-t*t/2, 1e-2))
			}
			Expect(res.States[0][0]).To(Equal(0.0))
		})
	})

	Describe("linear-quadratic regulator", func() {
		var (
			lqr *problems.LQR
			res *sweep.Result
		)

		BeforeEach(func() {
			lqr = problems.NewLQR()
			s, err := sweep.New(lqr, sweep.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			res, err = s.Solve(ctx, dynamo.State{1}, 1, nil, solveOptions(1e-2, 1e-4))
			Expect(err).NotTo(HaveOccurred())
		})

		It("matches the closed-form optimum", func() {
			for i, t := range res.Times {
				x, u, l := lqr.Exact(t, 1, 1)
				Expect(res.States[i][0]).To(BeNumerically("~", x, 5e-3))
				Expect(res.Controls[i][0]).To(BeNumerically("~", u, 5e-3))
				Expect(res.Adjoints[i][0]).To(BeNumerically("~", l, 5e-3))
			}
		})

		It("pins the boundary values", func() {
			Expect(res.States[0][0]).To(Equal(1.0))
			Expect(res.Adjoints[len(res.Adjoints)-1][0]).To(Equal(0.0))
		})

		It("improves the combined margin as it approaches the fixed point", func() {
			Expect(len(res.History)).To(BeNumerically(">", 2))
			first := res.History[0].Margin()
			last := res.History[len(res.History)-1].Margin()
			Expect(last).To(BeNumerically(">", first))
			Expect(last).To(BeNumerically(">=", 0))

			tail := res.History[len(res.History)/2:]
			increases := 0
			for i := 1; i < len(tail); i++ {
				if tail[i].Margin() >= tail[i-1].Margin() {
					increases++
				}
			}
			Expect(2 * increases).To(BeNumerically(">=", len(tail)-1))
		})
	})

	Describe("terminal conditions", func() {
		It("uses the transversality condition of a terminal payoff", func() {
			def, err := problems.NewRegistry().Get("payoff")
			Expect(err).NotTo(HaveOccurred())
			s, err := sweep.New(def.Problem, def.Config())
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Solve(ctx, def.X0, def.FinalTime, def.Params, solveOptions(1e-2, 1e-4))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Adjoints[len(res.Adjoints)-1][0]).To(Equal(-1.0))

			payoff := problems.NewPayoff()
			for i, t := range res.Times {
				Expect(res.Controls[i][0]).To(BeNumerically("~", payoff.OptimalControl(t, 1, def.Params), 5e-3))
			}
		})

		It("overrides only the free terminal components", func() {
			p := dynamo.Funcs{
				State: func(t float64, x dynamo.State, u dynamo.Control, _ dynamo.Params) dynamo.State {
					return dynamo.State{0, 0}
				},
				Adjoint: func(t float64, x dynamo.State, u dynamo.Control, l dynamo.State, _ dynamo.Params) dynamo.State {
					return dynamo.State{0, 0}
				},
				Update: func(t float64, x, l dynamo.State, _ dynamo.Params) dynamo.Control {
					return dynamo.Control{1}
				},
				Final: func(x dynamo.Trajectory, _ dynamo.Params) dynamo.State {
					return dynamo.State{3, 4}
				},
			}
			cfg := sweep.DefaultConfig()
			cfg.NumStates = 2
			cfg.FreeAdjointFinal = []int{1}
			s, err := sweep.New(p, cfg)
			Expect(err).NotTo(HaveOccurred())

			opts := solveOptions(0.1, 1e-3)
			opts.Theta = []float64{-7}
			res, err := s.Solve(ctx, dynamo.State{1, 1}, 1, nil, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Adjoints[len(res.Adjoints)-1]).To(Equal([]float64{3, -7}))
			Expect(res.Adjoints[0]).To(Equal([]float64{3, -7}))
		})

		It("steers the double integrator to rest with supplied terminal adjoints", func() {
			def, err := problems.NewRegistry().Get("doubleint")
			Expect(err).NotTo(HaveOccurred())
			s, err := sweep.New(def.Problem, def.Config())
			Expect(err).NotTo(HaveOccurred())

			opts := solveOptions(1e-2, 1e-4)
			opts.Theta = def.Theta
			res, err := s.Solve(ctx, def.X0, def.FinalTime, def.Params, opts)
			Expect(err).NotTo(HaveOccurred())

			final := res.States[len(res.States)-1]
			Expect(final[0]).To(BeNumerically("~", 0, 1e-2))
			Expect(final[1]).To(BeNumerically("~", 0, 1e-2))
			for i, t := range res.Times {
				Expect(res.Controls[i][0]).To(BeNumerically("~", 12*t-6, 2e-2))
			}
		})
	})

	Describe("termination", func() {
		It("returns the last iterate when the iteration cap is hit", func() {
			cfg := sweep.DefaultConfig()
			cfg.MaxIterations = 3
			s, err := sweep.New(problems.NewLQR(), cfg)
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Solve(ctx, dynamo.State{1}, 1, nil, solveOptions(1e-2, 1e-12))
			Expect(err).To(MatchError(dynamo.ErrNotConverged))
			Expect(res).NotTo(BeNil())
			Expect(res.Converged).To(BeFalse())
			Expect(res.Iterations).To(Equal(3))
			Expect(res.History).To(HaveLen(3))
			Expect(res.States).To(HaveLen(101))
		})

		It("stops when the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			s, err := sweep.New(problems.NewLQR(), sweep.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Solve(canceled, dynamo.State{1}, 1, nil, solveOptions(1e-2, 1e-4))
			Expect(err).To(MatchError(context.Canceled))
		})

		It("reports divergence on non-finite trajectories", func() {
			p := dynamo.Funcs{
				State: func(t float64, x dynamo.State, u dynamo.Control, _ dynamo.Params) dynamo.State {
					return dynamo.State{math.Inf(1)}
				},
				Adjoint: func(t float64, x dynamo.State, u dynamo.Control, l dynamo.State, _ dynamo.Params) dynamo.State {
					return dynamo.State{0}
				},
				Update: func(t float64, x, l dynamo.State, _ dynamo.Params) dynamo.Control {
					return dynamo.Control{0}
				},
			}
			s, err := sweep.New(p, sweep.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Solve(ctx, dynamo.State{1}, 1, nil, solveOptions(0.1, 1e-3))
			Expect(err).To(MatchError(dynamo.ErrDiverged))
		})
	})

	Describe("observers and reproducibility", func() {
		It("notifies observers once per iteration", func() {
			s, err := sweep.New(problems.NewLQR(), sweep.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			var seen []int
			s.AddObserver(sweep.ObserverFunc(func(it sweep.Iteration) {
				seen = append(seen, it.Number)
			}))

			res, err := s.Solve(ctx, dynamo.State{1}, 1, nil, solveOptions(1e-2, 1e-4))
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(HaveLen(res.Iterations))
			Expect(seen[0]).To(Equal(1))
		})

		It("is deterministic for a fixed seed", func() {
			cfg := sweep.DefaultConfig()
			cfg.Seed = 42
			a, _ := sweep.New(problems.NewLQR(), cfg)
			b, _ := sweep.New(problems.NewLQR(), cfg)

			ra, err := a.Solve(ctx, dynamo.State{1}, 1, nil, solveOptions(1e-2, 1e-4))
			Expect(err).NotTo(HaveOccurred())
			rb, err := b.Solve(ctx, dynamo.State{1}, 1, nil, solveOptions(1e-2, 1e-4))
			Expect(err).NotTo(HaveOccurred())
			Expect(ra.Controls).To(Equal(rb.Controls))
			Expect(ra.Iterations).To(Equal(rb.Iterations))
		})

		It("reaches the same optimum from different seeds", func() {
			ens := sweep.NewEnsemble(problems.NewLQR(), sweep.DefaultConfig(), 3, 1)
			results, err := ens.Run(ctx, dynamo.State{1}, 1, nil, solveOptions(1e-2, 1e-4))
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(sweep.Spread(results)).To(BeNumerically("<", 1e-3))
		})
	})
})
