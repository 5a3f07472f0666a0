package config

import (
	"math"
	"sort"
)

var Presets = map[string]map[string]*Config{
	"bangoff": {
		"classic": {
			Problem: "bangoff", FinalTime: 1, Step: 1e-2, Tolerance: 1e-3, Relaxation: 0.5, MaxIterations: 1000,
			X0: []float64{0}, Bounds: [][]float64{{-1, 1}},
		},
		"saturated": {
			Problem: "bangoff", FinalTime: 3, Step: 1e-2, Tolerance: 1e-3, Relaxation: 0.5, MaxIterations: 1000,
			X0: []float64{0}, Bounds: [][]float64{{-1, 1}},
		},
		"onesided": {
			Problem: "bangoff", FinalTime: 1, Step: 1e-2, Tolerance: 1e-3, Relaxation: 0.5, MaxIterations: 1000,
			X0: []float64{0}, Bounds: [][]float64{{0.25, math.Inf(1)}},
		},
	},
	"lqr": {
		"unit": {
			Problem: "lqr", FinalTime: 1, Step: 1e-3, Tolerance: 1e-4, Relaxation: 0.5, MaxIterations: 1000,
			X0: []float64{1},
		},
		"long": {
			Problem: "lqr", FinalTime: 2, Step: 1e-3, Tolerance: 1e-4, Relaxation: 0.3, MaxIterations: 5000,
			X0: []float64{1},
		},
	},
	"payoff": {
		"cheap": {
			Problem: "payoff", FinalTime: 1, Step: 1e-3, Tolerance: 1e-4, Relaxation: 0.5, MaxIterations: 1000,
			X0: []float64{1}, Params: map[string]float64{"a": 0.5, "b": 1},
		},
	},
	"harvest": {
		"fishery": {
			Problem: "harvest", FinalTime: 2, Step: 1e-2, Tolerance: 1e-4, Relaxation: 0.5, MaxIterations: 2000,
			X0: []float64{0.5}, Bounds: [][]float64{{0, 1}},
			Params: map[string]float64{"r": 1, "K": 1, "p": 1, "c": 0.5, "umax": 1},
		},
	},
	"doubleint": {
		"rest": {
			Problem: "doubleint", FinalTime: 1, Step: 1e-3, Tolerance: 1e-4, Relaxation: 0.5, MaxIterations: 1000,
			X0: []float64{1, 0}, FreeAdjointFinal: []int{0, 1}, Theta: []float64{12, -6},
		},
	},
}

func GetPreset(problem, preset string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	cfg, ok := problemPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
