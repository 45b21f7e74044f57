package thermal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/thermalstate/internal/dynamo"
)

func newTestGenerator(ta, tset float64) *Generator {
	pc, ph := DefaultCurve().Adjustments(tset)
	return NewGenerator(DefaultRates(), pc, ph, ta)
}

func TestGeneratorZeroGrid(t *testing.T) {
	g := newTestGenerator(0, 20)
	dx := g.Derive(dynamo.State(NewGrid()), 0)

	if len(dx) != GridSize {
		t.Fatalf("derivative length %d, want %d", len(dx), GridSize)
	}
	for i, v := range dx {
		if v != 0 {
			t.Fatalf("cell %d: expected zero derivative, got %v", i, v)
		}
	}
}

func TestGeneratorConservesMass(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	g := newTestGenerator(-5, 21)

	for trial := 0; trial < 20; trial++ {
		x := NewGrid()
		for i := range x {
			x[i] = rnd.Float64()
		}
		dx := dynamo.State(g.Derive(dynamo.State(x), 0))
		if math.Abs(dx.Sum()) > 1e-12 {
			t.Errorf("trial %d: derivative sums to %v", trial, dx.Sum())
		}
	}
}

// Mass placed in a single cell must flow out of that cell only and every
// outflow must land somewhere inside the grid.
func TestGeneratorSingleCellFlows(t *testing.T) {
	g := newTestGenerator(0, 20)

	for _, ti := range []int{0, 1, 25, TempBins - 2, TempBins - 1} {
		for _, q := range AllQuadrants {
			x := NewGrid()
			idx := ti*Quadrants + int(q)
			x[idx] = 1.0

			dx := g.Derive(dynamo.State(x), 0)

			if dx[idx] > 0 {
				t.Errorf("bin %d %v: source cell gains mass (%v)", ti, q, dx[idx])
			}
			sum := 0.0
			for i, v := range dx {
				if i != idx && v < 0 {
					t.Errorf("bin %d %v: cell %d loses mass it never had (%v)", ti, q, i, v)
				}
				sum += v
			}
			if math.Abs(sum) > 1e-14 {
				t.Errorf("bin %d %v: flows do not balance, sum=%v", ti, q, sum)
			}
		}
	}
}

func TestGeneratorBoundaries(t *testing.T) {
	g := newTestGenerator(0, 20)
	r := DefaultRates()
	effH, effF := HeatPumpEfficiency(0), FossilEfficiency(0)
	top := TempBins - 1

	t.Run("all off at bottom has no loss term", func(t *testing.T) {
		x := PointMass(0, 1)
		got := g.Rate(AllOff, x, 0)
		want := -(r.AlphaP + r.PhiP) * g.ph[0]
		if math.Abs(got-want) > 1e-15 {
			t.Errorf("rate = %v, want %v", got, want)
		}
	})

	t.Run("all off at top has no inflow from above", func(t *testing.T) {
		x := NewGrid()
		x.Set(top, 0, 0, 1)
		got := g.Rate(AllOff, x, top)
		want := -(r.AlphaP+r.PhiP)*g.ph[top] - r.L
		if math.Abs(got-want) > 1e-15 {
			t.Errorf("rate = %v, want %v", got, want)
		}
	})

	lifts := []struct {
		q    Quadrant
		lift float64
	}{
		{HeatPumpOn, r.H * effH},
		{FossilOn, r.F * effF},
		{BothOn, r.Omega},
	}
	for _, tt := range lifts {
		t.Run(tt.q.String()+" top bin does not lift", func(t *testing.T) {
			x := NewGrid()
			x[top*Quadrants+int(tt.q)] = 1
			if got, want := g.Rate(tt.q, x, top), -deviceOutflow(g, tt.q, top); math.Abs(got-want) > 1e-14 {
				t.Errorf("top bin rate = %v, want %v", got, want)
			}

			x = NewGrid()
			x[(top-1)*Quadrants+int(tt.q)] = 1
			if got, want := g.Rate(tt.q, x, top-1), -deviceOutflow(g, tt.q, top-1)-tt.lift; math.Abs(got-want) > 1e-14 {
				t.Errorf("bin below top rate = %v, want %v", got, want)
			}
		})

		t.Run(tt.q.String()+" bottom bin has no inflow from below", func(t *testing.T) {
			x := NewGrid()
			x[1*Quadrants+int(tt.q)] = 1
			if got := g.Rate(tt.q, x, 0); got != 0 {
				t.Errorf("bottom bin gains %v from the bin above", got)
			}
			if got := g.Rate(tt.q, x, 2); math.Abs(got-tt.lift) > 1e-15 {
				t.Errorf("bin 2 gains %v, want lift %v", got, tt.lift)
			}
		})
	}
}

func deviceOutflow(g *Generator, q Quadrant, ti int) float64 {
	r := g.rates
	h, c := g.ph[ti], g.pc[ti]
	switch q {
	case AllOff:
		return (r.AlphaP + r.PhiP) * h
	case HeatPumpOn:
		return r.GammaP*h + r.PhiM*c
	case FossilOn:
		return r.BetaP*h + r.AlphaM*c
	default:
		return (r.GammaM + r.BetaM) * c
	}
}

func TestGeneratorDeviceTransitionsPair(t *testing.T) {
	g := newTestGenerator(3, 20)
	r := DefaultRates()
	ti := 20
	h, c := g.ph[ti], g.pc[ti]

	x := NewGrid()
	x.Set(ti, 0, 0, 1)
	dx := g.Derive(dynamo.State(x), 0)

	if got, want := Grid(dx).At(ti, 0, 1), r.AlphaP*h; math.Abs(got-want) > 1e-15 {
		t.Errorf("all-off -> fossil rate %v, want %v", got, want)
	}
	if got, want := Grid(dx).At(ti, 1, 0), r.PhiP*h; math.Abs(got-want) > 1e-15 {
		t.Errorf("all-off -> heat pump rate %v, want %v", got, want)
	}

	x = NewGrid()
	x.Set(ti, 1, 1, 1)
	dx = g.Derive(dynamo.State(x), 0)
	if got, want := Grid(dx).At(ti, 1, 0), r.GammaM*c; math.Abs(got-want) > 1e-15 {
		t.Errorf("both-on -> heat pump rate %v, want %v", got, want)
	}
	if got, want := Grid(dx).At(ti, 0, 1), r.BetaM*c; math.Abs(got-want) > 1e-15 {
		t.Errorf("both-on -> fossil rate %v, want %v", got, want)
	}
}

func TestGeneratorCustomRates(t *testing.T) {
	pc, ph := DefaultCurve().Adjustments(20)
	zero := Rates{}
	g := NewGenerator(zero, pc, ph, 0)

	x := PointMass(15, 0.25)
	for i, v := range g.Derive(dynamo.State(x), 0) {
		if v != 0 {
			t.Fatalf("zero rates produced flow at cell %d: %v", i, v)
		}
	}
}

func TestGeneratorNegativeLifts(t *testing.T) {
	tests := []struct {
		ta   float64
		want int
	}{
		{15, 0},
		{0, 0},
		{-14, 0},
		{-15, 1},
	}

	for _, tt := range tests {
		g := newTestGenerator(tt.ta, 30)
		lifts := g.NegativeLifts()
		if len(lifts) != tt.want {
			t.Errorf("ta=%v: NegativeLifts() = %v, want %d entries", tt.ta, lifts, tt.want)
		}
		if tt.want > 0 && lifts[0] != "heat_pump_lift" {
			t.Errorf("ta=%v: got %q, want heat_pump_lift", tt.ta, lifts[0])
		}
	}
}

// With a negative heat-pump lift, mass at HeatPumpOn in bin ti drives the
// cell above it downward, which no conservative non-negative generator does.
func TestGeneratorNegativeOffDiagonal(t *testing.T) {
	g := newTestGenerator(-15, 30)
	ti := 11
	x := NewGrid()
	x[ti*Quadrants+int(HeatPumpOn)] = 1

	dx := g.Derive(dynamo.State(x), 0)
	if got := Grid(dx).AtQuadrant(ti+1, HeatPumpOn); got >= 0 {
		t.Errorf("bin %d heat-pump inflow = %v, want negative", ti+1, got)
	}
}
