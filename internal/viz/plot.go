package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fbsweep/internal/dynamo"
)

const (
	DefaultWidth  = 80
	DefaultHeight = 10
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Yellow,
	asciigraph.Magenta,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Blue,
}

type PlotOptions struct {
	Width  int
	Height int
	// MaxSeries caps the components drawn per panel.
	MaxSeries int
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: DefaultWidth, Height: DefaultHeight, MaxSeries: len(seriesColors)}
}

// Legends names the components of a trajectory: prefix0, prefix1, ...
func Legends(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return names
}

// Panel draws every component of tr as one asciigraph chart. An empty
// trajectory renders as an empty string.
func Panel(title, prefix string, tr dynamo.Trajectory, opts PlotOptions) string {
	n := tr.Width()
	if len(tr) == 0 || n == 0 {
		return ""
	}
	if opts.MaxSeries > 0 && n > opts.MaxSeries {
		n = opts.MaxSeries
	}

	series := make([][]float64, n)
	for k := range series {
		series[k] = tr.Component(k)
	}

	colors := make([]asciigraph.AnsiColor, n)
	for k := range colors {
		colors[k] = seriesColors[k%len(seriesColors)]
	}

	return asciigraph.PlotMany(series,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(title),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(Legends(prefix, n)...),
	)
}

// Panels draws the state, control and adjoint charts under styled headers.
func Panels(states, controls, adjoints dynamo.Trajectory, opts PlotOptions) string {
	var b strings.Builder
	for _, p := range []struct {
		header, caption, prefix string
		tr                      dynamo.Trajectory
	}{
		{"STATE", "x(t)", "x", states},
		{"CONTROL", "u(t)", "u", controls},
		{"ADJOINT", "λ(t)", "lambda", adjoints},
	} {
		chart := Panel(p.caption, p.prefix, p.tr, opts)
		if chart == "" {
			continue
		}
		b.WriteString(HeaderStyle.Render(p.header))
		b.WriteString("\n")
		b.WriteString(chart)
		b.WriteString("\n\n")
	}
	return b.String()
}
