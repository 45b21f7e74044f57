package thermal

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// TempBins is the number of indoor temperature bins.
	TempBins = 50
	// Quadrants is the number of (h, f) device-state combinations.
	Quadrants = 4
	// GridSize is the flattened length of a grid.
	GridSize = TempBins * Quadrants
)

// Quadrant is one (h, f) device-state combination. Its integer value is
// 2h+f, which is also the column of the cell in [Grid.Matrix].
type Quadrant int

const (
	AllOff     Quadrant = iota // h=0 f=0
	FossilOn                   // h=0 f=1
	HeatPumpOn                 // h=1 f=0
	BothOn                     // h=1 f=1
)

// AllQuadrants lists the quadrants in display order.
var AllQuadrants = [Quadrants]Quadrant{AllOff, FossilOn, HeatPumpOn, BothOn}

func QuadrantOf(h, f int) Quadrant { return Quadrant(2*h + f) }

func (q Quadrant) HeatPump() int { return int(q) >> 1 }
func (q Quadrant) Fossil() int   { return int(q) & 1 }

func (q Quadrant) String() string {
	return fmt.Sprintf("S[%d,%d]", q.HeatPump(), q.Fossil())
}

// Grid is the occupation tensor of shape (TempBins, 2, 2), stored
// row-major so that index (ti, h, f) lives at (ti*2+h)*2+f.
type Grid []float64

func NewGrid() Grid {
	return make(Grid, GridSize)
}

// PointMass returns a grid holding mass at (ti, 0, 0) and zero elsewhere.
func PointMass(ti int, mass float64) Grid {
	g := NewGrid()
	g.Set(ti, 0, 0, mass)
	return g
}

func Index(ti, h, f int) int { return (ti*2+h)*2 + f }

func (g Grid) At(ti, h, f int) float64     { return g[Index(ti, h, f)] }
func (g Grid) Set(ti, h, f int, v float64) { g[Index(ti, h, f)] = v }

func (g Grid) AtQuadrant(ti int, q Quadrant) float64 { return g[ti*Quadrants+int(q)] }

// Shape reports the logical tensor shape.
func (g Grid) Shape() (bins, heatPump, fossil int) { return TempBins, 2, 2 }

func (g Grid) Clone() Grid {
	c := make(Grid, len(g))
	copy(c, g)
	return c
}

// Matrix returns a TempBins x 4 view sharing the grid's backing array:
// rows are temperature bins, columns are quadrants.
func (g Grid) Matrix() *mat.Dense {
	return mat.NewDense(TempBins, Quadrants, g)
}

func (g Grid) Total() float64 {
	return floats.Sum(g)
}

// DeviceState sums over the temperature axis, ordered p00, p01, p10, p11.
func (g Grid) DeviceState() [Quadrants]float64 {
	var out [Quadrants]float64
	m := g.Matrix()
	col := make([]float64, TempBins)
	for _, q := range AllQuadrants {
		mat.Col(col, int(q), m)
		out[q] = floats.Sum(col)
	}
	return out
}

// Distribution sums over both device axes, giving the marginal indoor
// temperature distribution.
func (g Grid) Distribution() []float64 {
	out := make([]float64, TempBins)
	for ti := range out {
		out[ti] = floats.Sum(g[ti*Quadrants : (ti+1)*Quadrants])
	}
	return out
}

// MeanBin is the mass-weighted mean temperature bin. Zero mass yields zero.
func (g Grid) MeanBin() float64 {
	dist := g.Distribution()
	total := floats.Sum(dist)
	if total == 0 {
		return 0
	}
	bins := make([]float64, TempBins)
	for i := range bins {
		bins[i] = float64(i)
	}
	return floats.Dot(bins, dist) / total
}

func (g Grid) Min() float64 {
	return floats.Min(g)
}
