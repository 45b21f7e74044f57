package render

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/thermalstate/internal/thermal"
)

// Figure size of the two-panel chart.
var (
	FigureWidth  = 12 * vg.Inch
	FigureHeight = 5 * vg.Inch
)

// Figure builds the state panel and the distribution panel, one line per
// snapshot in both.
func Figure(snaps []thermal.Snapshot) (state, dist *plot.Plot, err error) {
	if len(snaps) == 0 {
		return nil, nil, fmt.Errorf("render: no snapshots")
	}

	state = plot.New()
	state.Title.Text = "Device state"
	state.X.Label.Text = "state"
	state.Y.Label.Text = "probability"
	state.X.Tick.Marker = quadrantTicks()
	state.Legend.Top = true

	dist = plot.New()
	dist.Title.Text = "Temperature distribution"
	dist.X.Label.Text = "indoor temperature bin"
	dist.Y.Label.Text = "probability"
	dist.Legend.Top = true

	for i, s := range snaps {
		label := fmt.Sprintf("t=%.1f", s.Time)

		pts := make(plotter.XYs, thermal.Quadrants)
		for q, v := range s.State {
			pts[q].X, pts[q].Y = float64(q), v
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, nil, err
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		state.Add(line, points)
		state.Legend.Add(label, line, points)

		dpts := make(plotter.XYs, len(s.Distribution))
		for ti, v := range s.Distribution {
			dpts[ti].X, dpts[ti].Y = float64(ti), v
		}
		dline, err := plotter.NewLine(dpts)
		if err != nil {
			return nil, nil, err
		}
		dline.Color = plotutil.Color(i)
		dline.Width = vg.Points(1.5)
		dist.Add(dline)
		dist.Legend.Add(label, dline)
	}

	state.X.Min, state.X.Max = -0.25, float64(thermal.Quadrants)-0.75
	dist.X.Min, dist.X.Max = 0, float64(thermal.TempBins-1)
	return state, dist, nil
}

func quadrantTicks() plot.Ticker {
	ticks := make([]plot.Tick, thermal.Quadrants)
	for i, q := range thermal.AllQuadrants {
		ticks[i] = plot.Tick{Value: float64(i), Label: q.String()}
	}
	return plot.ConstantTicks(ticks)
}

// WritePNG draws both panels side by side and encodes the image to w.
func WritePNG(w io.Writer, snaps []thermal.Snapshot) error {
	state, dist, err := Figure(snaps)
	if err != nil {
		return err
	}

	img := vgimg.New(FigureWidth, FigureHeight)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	plots := [][]*plot.Plot{{state, dist}}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i, p := range plots[j] {
			p.Draw(canvases[j][i])
		}
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("render: write png: %w", err)
	}
	return nil
}

func SavePNG(path string, snaps []thermal.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := WritePNG(bw, snaps); err != nil {
		return err
	}
	return bw.Flush()
}
