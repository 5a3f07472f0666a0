package control

import "gonum.org/v1/gonum/floats"

// Blend writes dst = coef*candidate + (1-coef)*old. dst may alias old.
func Blend(dst []float64, coef float64, candidate, old []float64) {
	floats.ScaleTo(dst, 1-coef, old)
	floats.AddScaled(dst, coef, candidate)
}
