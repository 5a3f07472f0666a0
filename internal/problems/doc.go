// Package problems is a catalogue of optimal-control problems ready to be
// handed to the sweep solver.
//
// Each problem implements [dynamo.Problem] directly; problems with a terminal
// payoff also implement [dynamo.Transversality]. A [Definition] bundles a
// problem with the dimensions, bounds, parameters and initial state it is
// usually solved with, and the [Registry] looks definitions up by name:
//
//	reg := problems.NewRegistry()
//	def, err := reg.Get("lqr")
//	solver, err := sweep.New(def.Problem, def.Config())
//
// Problems with closed-form solutions expose them as methods so tests and
// the CLI can compare against the sweep.
package problems
