package sweep

import (
	"math"

	"github.com/san-kum/fbsweep/internal/dynamo"
)

// Margin is the relative-change test of one trajectory: for each component k
// it computes tol*Σ|next_k| - Σ|next_k - prev_k| over time and returns the
// smallest. A non-negative margin means every component changed by at most
// tol relative to its current magnitude.
func Margin(next, prev dynamo.Trajectory, tol float64) float64 {
	m := math.Inf(1)
	for k := 0; k < next.Width(); k++ {
		var mag, diff float64
		for i := range next {
			mag += math.Abs(next[i][k])
			diff += math.Abs(next[i][k] - prev[i][k])
		}
		m = math.Min(m, tol*mag-diff)
	}
	return m
}

// Iteration reports the margins after one outer iteration.
type Iteration struct {
	Number        int
	StateMargin   float64
	ControlMargin float64
	AdjointMargin float64
}

// Margin is the combined margin, the minimum of the three.
func (it Iteration) Margin() float64 {
	return math.Min(it.StateMargin, math.Min(it.ControlMargin, it.AdjointMargin))
}

func (it Iteration) Converged() bool {
	return it.Margin() >= 0
}
