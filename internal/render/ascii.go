package render

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/thermalstate/internal/thermal"
)

// Options for terminal charts.
type Options struct {
	Width  int
	Height int
	Color  bool
}

func DefaultOptions() Options {
	return Options{Width: 60, Height: 12, Color: true}
}

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Red,
	asciigraph.Orange,
	asciigraph.Gold,
	asciigraph.Green,
	asciigraph.DodgerBlue,
	asciigraph.Violet,
}

// StateChart plots the device state vector of each snapshot against the
// quadrant axis S[0,0], S[0,1], S[1,0], S[1,1].
func StateChart(snaps []thermal.Snapshot, opts Options) string {
	if len(snaps) == 0 {
		return ""
	}
	data := make([][]float64, len(snaps))
	for i, s := range snaps {
		data[i] = s.State[:]
	}

	labels := make([]string, thermal.Quadrants)
	for i, q := range thermal.AllQuadrants {
		labels[i] = q.String()
	}
	caption := "device state: " + strings.Join(labels, "  ")

	return asciigraph.PlotMany(data, chartOptions(snaps, caption, opts)...)
}

// DistributionChart plots the temperature distribution of each snapshot
// over the K bins.
func DistributionChart(snaps []thermal.Snapshot, opts Options) string {
	if len(snaps) == 0 {
		return ""
	}
	data := make([][]float64, len(snaps))
	for i, s := range snaps {
		data[i] = s.Distribution
	}
	caption := fmt.Sprintf("temperature distribution over %d bins", thermal.TempBins)

	return asciigraph.PlotMany(data, chartOptions(snaps, caption, opts)...)
}

// SeriesChart plots a single series, used for per-run summaries such as
// mean temperature against time.
func SeriesChart(values []float64, caption string, opts Options) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(caption),
	)
}

func chartOptions(snaps []thermal.Snapshot, caption string, opts Options) []asciigraph.Option {
	options := []asciigraph.Option{
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(caption),
		asciigraph.Precision(3),
		asciigraph.SeriesLegends(legends(snaps)...),
	}
	// Legends index the series colors, so plain output still needs one
	// entry per series.
	colors := make([]asciigraph.AnsiColor, len(snaps))
	for i := range snaps {
		colors[i] = asciigraph.Default
		if opts.Color {
			colors[i] = seriesColors[i%len(seriesColors)]
		}
	}
	return append(options, asciigraph.SeriesColors(colors...))
}

func legends(snaps []thermal.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = fmt.Sprintf("t=%.1f", s.Time)
	}
	return out
}
