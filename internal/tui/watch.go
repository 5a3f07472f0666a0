// Package tui is the bubbletea view behind `fbsweep watch`: it follows a
// running sweep iteration by iteration.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fbsweep/internal/sweep"
	"github.com/san-kum/fbsweep/internal/viz"
)

const (
	historyWindow = 60
	barWidth      = 30
)

// IterationMsg carries one finished sweep iteration.
type IterationMsg sweep.Iteration

// DoneMsg is sent once the solve returns.
type DoneMsg struct {
	Result *sweep.Result
	Err    error
}

// Sender is the part of *tea.Program the observer needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards every iteration to the program as an IterationMsg.
func Observer(s Sender) sweep.Observer {
	return sweep.ObserverFunc(func(it sweep.Iteration) {
		s.Send(IterationMsg(it))
	})
}

type Model struct {
	problem       string
	maxIterations int
	last          sweep.Iteration
	residuals     []float64
	result        *sweep.Result
	err           error
	done          bool
}

func NewModel(problem string, maxIterations int) Model {
	return Model{
		problem:       problem,
		maxIterations: maxIterations,
		residuals:     make([]float64, 0, historyWindow),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}
	case IterationMsg:
		m.last = sweep.Iteration(msg)
		if len(m.residuals) == historyWindow {
			m.residuals = m.residuals[1:]
		}
		m.residuals = append(m.residuals, residual(m.last.Margin()))
	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
	}
	return m, nil
}

// residual maps a margin to log10 of its shortfall; converged margins map
// to the floor.
func residual(margin float64) float64 {
	const floor = -16
	if margin >= 0 || math.IsNaN(margin) {
		return floor
	}
	return math.Max(math.Log10(-margin), floor)
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(viz.Title.Render("SWEEP "+strings.ToUpper(m.problem)) + "\n\n")

	switch {
	case m.done && m.err == nil:
		s.WriteString(viz.Status(true))
	case m.done:
		s.WriteString(viz.StatusFailed.Render("FAILED: " + m.err.Error()))
	default:
		s.WriteString(viz.StatusRunning.Render("ITERATING"))
	}
	s.WriteString("\n\n")

	s.WriteString(viz.Metric("iteration", fmt.Sprintf("%d / %d", m.last.Number, m.maxIterations)) + "\n")
	s.WriteString(viz.Metric("state", fmt.Sprintf("%.3e", m.last.StateMargin)) + "\n")
	s.WriteString(viz.Metric("control", fmt.Sprintf("%.3e", m.last.ControlMargin)) + "\n")
	s.WriteString(viz.Metric("adjoint", fmt.Sprintf("%.3e", m.last.AdjointMargin)) + "\n")
	if m.maxIterations > 0 {
		s.WriteString(viz.MetricLabel.Render("iters ") + viz.ProgressBar(float64(m.last.Number)/float64(m.maxIterations), barWidth) + "\n")
	}

	if len(m.residuals) > 1 {
		chart := asciigraph.Plot(m.residuals,
			asciigraph.Height(6),
			asciigraph.Width(historyWindow),
			asciigraph.Caption("log10 shortfall"),
		)
		s.WriteString("\n" + chart + "\n")
	}

	if m.result != nil {
		s.WriteString("\n" + viz.Separator(historyWindow) + "\n")
		s.WriteString(viz.Metric("iterations", fmt.Sprintf("%d", m.result.Iterations)) + "\n")
		s.WriteString(viz.Metric("margin", fmt.Sprintf("%.3e", m.result.Margin)) + "\n")
	}

	hint := "q: quit"
	if m.done {
		hint = "any key: exit"
	}
	s.WriteString("\n" + viz.KeyHint.Render(hint))
	return viz.GlassPanel.Render(s.String())
}

// Outcome returns the solve result once done is true.
func (m Model) Outcome() (res *sweep.Result, done bool, err error) {
	return m.result, m.done, m.err
}

// Run solves under a bubbletea program until the user exits. Quitting early
// cancels the solve.
func Run(ctx context.Context, problem string, solver *sweep.Solver, solve func(context.Context) (*sweep.Result, error)) (*sweep.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(problem, solver.Config().MaxIterations))
	solver.AddObserver(Observer(p))

	go func() {
		res, err := solve(ctx)
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	res, done, solveErr := final.(Model).Outcome()
	if !done {
		return nil, context.Canceled
	}
	return res, solveErr
}
