package control

import (
	"fmt"
	"math"

	"github.com/san-kum/fbsweep/internal/dynamo"
)

// Bound is a closed box [Lower, Upper] for one control component. Either
// side may be infinite.
type Bound struct {
	Lower float64
	Upper float64
}

// Free is the bound of an unconstrained component.
var Free = Bound{Lower: math.Inf(-1), Upper: math.Inf(1)}

type Bounds []Bound

// Unbounded returns n unconstrained bounds.
func Unbounded(n int) Bounds {
	b := make(Bounds, n)
	for i := range b {
		b[i] = Free
	}
	return b
}

func (b Bound) Validate() error {
	if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || b.Lower >= b.Upper {
		return fmt.Errorf("%w: got (%g, %g)", dynamo.ErrInvalidBounds, b.Lower, b.Upper)
	}
	return nil
}

func (b Bound) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

func (b Bound) Clip(v float64) float64 {
	return Clip(v, b.Lower, b.Upper)
}

// Map sends a sample s from [0, 1] into the bound. Finite boxes are scaled
// and shifted, a lower half-line shifts s up by Lower, an upper half-line
// scales s by Upper (or shifts it below Upper when Upper <= 0), and free
// components pass s through.
func (b Bound) Map(s float64) float64 {
	lowerFinite := !math.IsInf(b.Lower, -1)
	upperFinite := !math.IsInf(b.Upper, 1)
	switch {
	case lowerFinite && upperFinite:
		return (b.Upper-b.Lower)*s + b.Lower
	case lowerFinite:
		return s + b.Lower
	case upperFinite && b.Upper > 0:
		return b.Upper * s
	case upperFinite:
		return b.Upper - s
	default:
		return s
	}
}

// Validate checks every bound is well ordered.
func (bs Bounds) Validate() error {
	for k, b := range bs {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("control %d: %w", k, err)
		}
	}
	return nil
}

// ValidateFor checks the bounds are well ordered and cover exactly n controls.
func (bs Bounds) ValidateFor(n int) error {
	if len(bs) != n {
		return fmt.Errorf("%w: %d bounds for %d controls", dynamo.ErrBoundsLength, len(bs), n)
	}
	return bs.Validate()
}

func (bs Bounds) Contains(u []float64) bool {
	for k, b := range bs {
		if !b.Contains(u[k]) {
			return false
		}
	}
	return true
}

// Clip returns v limited to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
