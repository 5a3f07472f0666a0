package metrics

import (
	"github.com/san-kum/fbsweep/internal/sweep"
	"gonum.org/v1/gonum/floats"
)

// TerminalNorm is the Euclidean norm of x(T).
type TerminalNorm struct {
	name string
}

func NewTerminalNorm() *TerminalNorm {
	return &TerminalNorm{name: "terminal_norm"}
}

func (n *TerminalNorm) Name() string { return n.name }

func (n *TerminalNorm) Compute(r *sweep.Result) float64 {
	if len(r.States) == 0 {
		return 0
	}
	return floats.Norm(r.States[len(r.States)-1], 2)
}
