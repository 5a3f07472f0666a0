// Package dynamo provides the core primitives shared by the forward-backward
// sweep solver.
//
// The package defines the vectors, trajectories and capability interfaces an
// optimal-control problem is expressed with:
//
//   - [State] and [Control]: per-instant vectors
//   - [Trajectory]: one vector per grid instant, N+1 rows
//   - [Grid]: N+1 equally spaced instants on [0, T]
//   - [Problem]: state dynamics, adjoint dynamics and control update rule
//   - [Transversality]: optional terminal condition for the adjoint
//
// # Example
//
//	p := dynamo.Funcs{
//		State:   func(t float64, x dynamo.State, u dynamo.Control, _ dynamo.Params) dynamo.State { return dynamo.State{u[0]} },
//		Adjoint: func(t float64, x dynamo.State, u dynamo.Control, l dynamo.State, _ dynamo.Params) dynamo.State { return dynamo.State{-1} },
//		Update:  func(t float64, x, l dynamo.State, _ dynamo.Params) dynamo.Control { return dynamo.Control{l[0]} },
//	}
//	solver, _ := sweep.New(p, sweep.DefaultConfig())
//	result, _ := solver.Solve(ctx, dynamo.State{0}, 1, nil, sweep.DefaultSolveOptions())
package dynamo
