package problems

import (
	"fmt"
	"sort"

	"github.com/san-kum/fbsweep/internal/control"
	"github.com/san-kum/fbsweep/internal/dynamo"
	"github.com/san-kum/fbsweep/internal/sweep"
)

// Definition is a named problem together with the setup it is solved with
// by default.
type Definition struct {
	Name             string
	Description      string
	Problem          dynamo.Problem
	NumStates        int
	NumControls      int
	Bounds           control.Bounds
	FreeAdjointFinal []int
	Theta            []float64
	Params           dynamo.Params
	X0               dynamo.State
	FinalTime        float64
}

// Config returns the default sweep configuration for the definition.
func (d Definition) Config() sweep.Config {
	cfg := sweep.DefaultConfig()
	cfg.NumStates = d.NumStates
	cfg.NumControls = d.NumControls
	cfg.Bounds = d.Bounds
	cfg.FreeAdjointFinal = d.FreeAdjointFinal
	return cfg
}

type Registry struct {
	defs map[string]func() Definition
}

func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]func() Definition)}

	r.defs["bangoff"] = func() Definition {
		p := NewBangOff()
		return Definition{
			Name:        "bangoff",
			Description: "x' = u, λ' = -1, u = clip(λ, -1, 1)",
			Problem:     p,
			NumStates:   1,
			NumControls: 1,
			Bounds:      control.Bounds{p.Bound},
			X0:          dynamo.State{0},
			FinalTime:   1,
		}
	}
	r.defs["lqr"] = func() Definition {
		return Definition{
			Name:        "lqr",
			Description: "min ∫(x² + u²)/2, x' = u",
			Problem:     NewLQR(),
			NumStates:   1,
			NumControls: 1,
			X0:          dynamo.State{1},
			FinalTime:   1,
		}
	}
	r.defs["payoff"] = func() Definition {
		return Definition{
			Name:        "payoff",
			Description: "min ∫a·u²/2 - b·x(T), x' = x + u",
			Problem:     NewPayoff(),
			NumStates:   1,
			NumControls: 1,
			Params:      dynamo.Params{"a": 1, "b": 1},
			X0:          dynamo.State{1},
			FinalTime:   1,
		}
	}
	r.defs["harvest"] = func() Definition {
		return Definition{
			Name:        "harvest",
			Description: "logistic stock harvesting, max ∫(p·u·x - c·u²/2)",
			Problem:     NewHarvest(),
			NumStates:   1,
			NumControls: 1,
			Bounds:      control.Bounds{{Lower: 0, Upper: 1}},
			Params:      dynamo.Params{"r": 1, "K": 1, "p": 1, "c": 0.5, "umax": 1},
			X0:          dynamo.State{0.5},
			FinalTime:   2,
		}
	}
	r.defs["doubleint"] = func() Definition {
		p := NewDoubleIntegrator()
		return Definition{
			Name:             "doubleint",
			Description:      "rest-to-rest double integrator, min ∫u²/2",
			Problem:          p,
			NumStates:        2,
			NumControls:      1,
			FreeAdjointFinal: []int{0, 1},
			Theta:            p.RestToRest(1, 1),
			X0:               dynamo.State{1, 0},
			FinalTime:        1,
		}
	}

	return r
}

// Register adds or replaces a definition.
func (r *Registry) Register(name string, fn func() Definition) {
	r.defs[name] = fn
}

func (r *Registry) Get(name string) (Definition, error) {
	fn, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown problem: %s", name)
	}
	return fn(), nil
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
