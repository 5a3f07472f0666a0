package tui

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/fbsweep/internal/sweep"
)

type recorder struct {
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) { r.msgs = append(r.msgs, msg) }

func TestObserverForwardsIterations(t *testing.T) {
	rec := &recorder{}
	obs := Observer(rec)
	obs.OnIteration(sweep.Iteration{Number: 3, StateMargin: 1})

	if len(rec.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(rec.msgs))
	}
	it, ok := rec.msgs[0].(IterationMsg)
	if !ok || it.Number != 3 {
		t.Errorf("unexpected message %#v", rec.msgs[0])
	}
}

func TestModelTracksIterations(t *testing.T) {
	var m tea.Model = NewModel("lqr", 100)
	for i := 1; i <= historyWindow+5; i++ {
		m, _ = m.Update(IterationMsg{Number: i, StateMargin: -1, ControlMargin: -2, AdjointMargin: -3})
	}

	wm := m.(Model)
	if wm.last.Number != historyWindow+5 {
		t.Errorf("expected last iteration %d, got %d", historyWindow+5, wm.last.Number)
	}
	if len(wm.residuals) != historyWindow {
		t.Errorf("residual history should be capped at %d, got %d", historyWindow, len(wm.residuals))
	}
	if !strings.Contains(wm.View(), "ITERATING") {
		t.Error("view should show a running solve")
	}
}

func TestModelDone(t *testing.T) {
	var m tea.Model = NewModel("lqr", 100)
	m, _ = m.Update(DoneMsg{Result: &sweep.Result{Iterations: 7, Converged: true}})

	res, done, err := m.(Model).Outcome()
	if !done || err != nil || res.Iterations != 7 {
		t.Errorf("unexpected outcome %v %v %v", res, err, done)
	}
	if !strings.Contains(m.View(), "CONVERGED") {
		t.Error("view should report convergence")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd == nil {
		t.Error("any key should quit once done")
	}
}

func TestModelFailed(t *testing.T) {
	var m tea.Model = NewModel("lqr", 100)
	m, _ = m.Update(DoneMsg{Err: errors.New("boom")})
	if !strings.Contains(m.View(), "boom") {
		t.Error("view should show the error")
	}
}

func TestResidual(t *testing.T) {
	if residual(0.5) != -16 {
		t.Error("converged margin should map to the floor")
	}
	if got := residual(-100); math.Abs(got-2) > 1e-12 {
		t.Errorf("residual(-100) = %f, want 2", got)
	}
}
