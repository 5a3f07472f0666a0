// Package export renders sweep trajectories to image files with gonum/plot:
// three vertically stacked panels (state, control, adjoint) with grid lines
// and one legend entry per component.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/fbsweep/internal/dynamo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"
)

type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	DPI    int
}

func DefaultOptions() Options {
	return Options{
		Width:  8 * vg.Inch,
		Height: 9 * vg.Inch,
		DPI:    300,
	}
}

// Panels builds the state, control and adjoint plots sharing the time axis.
func Panels(title string, times []float64, states, controls, adjoints dynamo.Trajectory) ([]*plot.Plot, error) {
	specs := []struct {
		label, prefix string
		tr            dynamo.Trajectory
	}{
		{"state", "x", states},
		{"control", "u", controls},
		{"adjoint", "lambda", adjoints},
	}

	panels := make([]*plot.Plot, 0, len(specs))
	for i, s := range specs {
		p, err := panel(s.label, s.prefix, times, s.tr)
		if err != nil {
			return nil, fmt.Errorf("%s panel: %w", s.label, err)
		}
		if i == 0 && title != "" {
			p.Title.Text = title
		}
		panels = append(panels, p)
	}
	return panels, nil
}

func panel(label, prefix string, times []float64, tr dynamo.Trajectory) (*plot.Plot, error) {
	if len(tr) != len(times) {
		return nil, fmt.Errorf("%d rows for %d times", len(tr), len(times))
	}

	p := plot.New()
	p.X.Label.Text = "t"
	p.Y.Label.Text = label
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for k := 0; k < tr.Width(); k++ {
		pts := make(plotter.XYs, len(times))
		for i, t := range times {
			pts[i].X = t
			pts[i].Y = tr[i][k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(k)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s%d", prefix, k), line)
	}
	return p, nil
}

func drawStacked(dc draw.Canvas, panels []*plot.Plot) {
	rows := make([][]*plot.Plot, len(panels))
	for i, p := range panels {
		rows[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows:      len(panels),
		Cols:      1,
		PadY:      vg.Points(8),
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(8),
	}
	canvases := plot.Align(rows, tiles, dc)
	for i, p := range panels {
		p.Draw(canvases[i][0])
	}
}

func WritePNG(w io.Writer, panels []*plot.Plot, opts Options) error {
	c := vgimg.NewWith(
		vgimg.UseWH(opts.Width, opts.Height),
		vgimg.UseDPI(opts.DPI),
	)
	drawStacked(draw.New(c), panels)

	png := vgimg.PngCanvas{Canvas: c}
	_, err := png.WriteTo(w)
	return err
}

func WriteSVG(w io.Writer, panels []*plot.Plot, opts Options) error {
	c := vgsvg.New(opts.Width, opts.Height)
	drawStacked(draw.New(c), panels)
	_, err := c.WriteTo(w)
	return err
}

// RenderFile writes the three panels to path. The extension selects the
// format: .png or .svg.
func RenderFile(path string, times []float64, states, controls, adjoints dynamo.Trajectory, opts Options) error {
	write := WritePNG
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
	case ".svg":
		write = WriteSVG
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}

	panels, err := Panels(opts.Title, times, states, controls, adjoints)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := write(bw, panels, opts); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return bw.Flush()
}
