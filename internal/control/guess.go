package control

import (
	"math/rand/v2"

	"github.com/san-kum/fbsweep/internal/dynamo"
	"gonum.org/v1/gonum/stat/distuv"
)

// Shape parameters of the initial guess distribution. Beta(1000, 1000) is
// tightly concentrated around 0.5.
const (
	GuessAlpha = 1000
	GuessBeta  = 1000
)

// InitialGuess samples a rows x len(bounds) control trajectory. Each entry is
// drawn from Beta(GuessAlpha, GuessBeta) on [0, 1] and mapped into its
// component's bound with Bound.Map.
func InitialGuess(bounds Bounds, rows int, src rand.Source) dynamo.Trajectory {
	dist := distuv.Beta{Alpha: GuessAlpha, Beta: GuessBeta, Src: src}
	u := dynamo.NewTrajectory(rows, len(bounds))
	for i := range u {
		for k, b := range bounds {
			u[i][k] = b.Map(dist.Rand())
		}
	}
	return u
}
