// Package viz renders sweep results in the terminal.
//
// [Panels] draws the state, control and adjoint trajectories as three
// asciigraph charts, one series per component, with legends named after the
// CSV columns (x0, u0, lambda0, ...). The lipgloss styles in this package are
// shared with the watch view in internal/tui.
package viz
