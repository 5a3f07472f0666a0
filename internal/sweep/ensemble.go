package sweep

import (
	"context"
	"math"
	"sync"

	"github.com/san-kum/fbsweep/internal/dynamo"
)

// Ensemble solves the same problem from several random initial guesses,
// one goroutine per run with seeds seedStart, seedStart+1, ...
type Ensemble struct {
	problem   dynamo.Problem
	cfg       Config
	numRuns   int
	seedStart int64
}

func NewEnsemble(problem dynamo.Problem, cfg Config, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{problem: problem, cfg: cfg, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, x0 dynamo.State, T float64, params dynamo.Params, opts SolveOptions) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := e.cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			s, err := New(e.problem, cfgCopy)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = s.Solve(ctx, x0, T, params, opts)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Spread is the largest pointwise control difference between any run and
// the first one. Converged runs of a problem with a unique optimum should
// give a spread on the order of the tolerance.
func Spread(results []*Result) float64 {
	spread := 0.0
	if len(results) == 0 {
		return spread
	}
	ref := results[0].Controls
	for _, r := range results[1:] {
		for i := range ref {
			for k := range ref[i] {
				spread = math.Max(spread, math.Abs(r.Controls[i][k]-ref[i][k]))
			}
		}
	}
	return spread
}
