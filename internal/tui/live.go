package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/thermal"
)

// LiveRenderer prints one line per output sample while a run integrates:
// time, total mass, mean bin, the device state vector and a sparkline of
// the temperature distribution.
type LiveRenderer struct {
	w     io.Writer
	width int
}

func NewLiveRenderer(w io.Writer, width int) *LiveRenderer {
	if width <= 0 {
		width = thermal.TempBins
	}
	return &LiveRenderer{w: w, width: width}
}

func (r *LiveRenderer) OnSample(index int, x dynamo.State, t float64) {
	g := thermal.Grid(x)
	state := g.DeviceState()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%3d  t=%6.2f  mass=%.6f  mean=%5.2f  ", index, t, g.Total(), g.MeanBin())
	for _, q := range thermal.AllQuadrants {
		fmt.Fprintf(&sb, "%s=%.3f ", q, state[q])
	}
	sb.WriteString(" ")
	sb.WriteString(sparkline(g.Distribution(), r.width))
	sb.WriteString("\n")

	io.WriteString(r.w, sb.String())
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		v := data[i*step]
		idx := int((v - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}
