package config

import (
	"fmt"
	"os"

	"github.com/san-kum/fbsweep/internal/control"
	"github.com/san-kum/fbsweep/internal/dynamo"
	"github.com/san-kum/fbsweep/internal/problems"
	"github.com/san-kum/fbsweep/internal/sweep"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProblem   = "bangoff"
	DefaultFinalTime = 1.0
)

// Config is a solve request as written in a YAML run file. Bounds are
// [lower, upper] pairs; .inf and -.inf are accepted.
type Config struct {
	Problem          string             `yaml:"problem"`
	FinalTime        float64            `yaml:"final_time"`
	Step             float64            `yaml:"step"`
	Tolerance        float64            `yaml:"tolerance"`
	Relaxation       float64            `yaml:"relaxation"`
	MaxIterations    int                `yaml:"max_iterations"`
	Seed             int64              `yaml:"seed"`
	X0               []float64          `yaml:"x0,omitempty"`
	Bounds           [][]float64        `yaml:"bounds,omitempty"`
	Params           map[string]float64 `yaml:"params,omitempty"`
	FreeAdjointFinal []int              `yaml:"free_adjoint_final,omitempty"`
	Theta            []float64          `yaml:"theta,omitempty"`
}

// DefaultConfig leaves FinalTime unset so Apply can take the problem's own
// horizon.
func DefaultConfig() *Config {
	return &Config{
		Problem:       DefaultProblem,
		Step:          sweep.DefaultStep,
		Tolerance:     sweep.DefaultTolerance,
		Relaxation:    sweep.DefaultRelaxation,
		MaxIterations: sweep.DefaultMaxIterations,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ControlBounds converts the YAML pairs. Nil pairs mean unconstrained.
func (c *Config) ControlBounds() (control.Bounds, error) {
	if c.Bounds == nil {
		return nil, nil
	}
	bounds := make(control.Bounds, len(c.Bounds))
	for k, pair := range c.Bounds {
		if len(pair) != 2 {
			return nil, fmt.Errorf("bounds[%d]: expected [lower, upper], got %d values", k, len(pair))
		}
		bounds[k] = control.Bound{Lower: pair[0], Upper: pair[1]}
	}
	return bounds, nil
}

// SetBounds stores bounds as YAML pairs.
func (c *Config) SetBounds(bounds control.Bounds) {
	c.Bounds = nil
	for _, b := range bounds {
		c.Bounds = append(c.Bounds, []float64{b.Lower, b.Upper})
	}
}

// Apply fills unset fields from a problem definition: x0, final time,
// bounds, params and free terminal adjoints.
func (c *Config) Apply(def problems.Definition) {
	if c.FinalTime <= 0 {
		c.FinalTime = def.FinalTime
	}
	if c.FinalTime <= 0 {
		c.FinalTime = DefaultFinalTime
	}
	if c.X0 == nil {
		c.X0 = def.X0.Clone()
	}
	if c.Bounds == nil {
		c.SetBounds(def.Bounds)
	}
	if c.Params == nil && def.Params != nil {
		c.Params = make(map[string]float64, len(def.Params))
		for k, v := range def.Params {
			c.Params[k] = v
		}
	}
	if c.FreeAdjointFinal == nil {
		c.FreeAdjointFinal = append([]int(nil), def.FreeAdjointFinal...)
		if c.Theta == nil {
			c.Theta = append([]float64(nil), def.Theta...)
		}
	}
}

// Build turns the config into a solver configuration and solve options for
// the given definition.
func (c *Config) Build(def problems.Definition) (sweep.Config, sweep.SolveOptions, error) {
	bounds, err := c.ControlBounds()
	if err != nil {
		return sweep.Config{}, sweep.SolveOptions{}, err
	}

	sc := def.Config()
	sc.Relaxation = c.Relaxation
	sc.MaxIterations = c.MaxIterations
	sc.Seed = c.Seed
	if bounds != nil {
		sc.Bounds = bounds
	}
	if c.FreeAdjointFinal != nil {
		sc.FreeAdjointFinal = c.FreeAdjointFinal
	}

	opts := sweep.DefaultSolveOptions()
	opts.Step = c.Step
	opts.Tolerance = c.Tolerance
	opts.Theta = c.Theta
	return sc, opts, nil
}

func (c *Config) InitState() dynamo.State {
	return dynamo.State(c.X0).Clone()
}

func (c *Config) ProblemParams() dynamo.Params {
	return dynamo.Params(c.Params)
}

func (c *Config) Clone() *Config {
	out := *c
	out.X0 = append([]float64(nil), c.X0...)
	out.Theta = append([]float64(nil), c.Theta...)
	out.FreeAdjointFinal = append([]int(nil), c.FreeAdjointFinal...)
	if c.Bounds != nil {
		out.Bounds = make([][]float64, len(c.Bounds))
		for i, pair := range c.Bounds {
			out.Bounds[i] = append([]float64(nil), pair...)
		}
	}
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}

// SetValue assigns a numeric setting by its YAML name. Names that are not
// settings are stored as problem parameters.
func (c *Config) SetValue(name string, v float64) {
	switch name {
	case "final_time":
		c.FinalTime = v
	case "step":
		c.Step = v
	case "tolerance":
		c.Tolerance = v
	case "relaxation":
		c.Relaxation = v
	case "max_iterations":
		c.MaxIterations = int(v)
	case "seed":
		c.Seed = int64(v)
	default:
		if c.Params == nil {
			c.Params = make(map[string]float64)
		}
		c.Params[name] = v
	}
}
