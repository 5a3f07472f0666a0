// Package control provides the control-side pieces of the sweep:
//
//   - [Bound] and [Bounds]: per-component box constraints, possibly infinite
//   - [InitialGuess]: randomized feasible starting control trajectory
//   - [Blend]: damped convex-combination update
//
// # Usage
//
//	bounds := control.Bounds{{Lower: -1, Upper: 1}}
//	if err := bounds.Validate(); err != nil { ... }
//	u := control.InitialGuess(bounds, grid.Len(), rand.NewPCG(1, 2))
//	control.Blend(u[i], 0.5, candidate, u[i])
//
// Blending is not followed by a projection onto the bounds. Problems whose
// update rule clips into the bounds keep every blended value feasible,
// because a convex combination of feasible points is feasible.
package control
