package thermal

import "github.com/san-kum/thermalstate/internal/dynamo"

// rule returns the local derivative of one quadrant cell at bin ti.
type rule func(g *Generator, x Grid, ti int, hadj, cadj float64) float64

var rules = [Quadrants]rule{
	AllOff:     allOff,
	FossilOn:   fossilOn,
	HeatPumpOn: heatPumpOn,
	BothOn:     bothOn,
}

// Generator is the right-hand side of the master equation. It implements
// dynamo.System over flattened grids of length GridSize.
type Generator struct {
	rates  Rates
	pc, ph []float64
	effH   float64
	effF   float64
}

func NewGenerator(rates Rates, pc, ph []float64, ta float64) *Generator {
	return &Generator{
		rates: rates,
		pc:    pc,
		ph:    ph,
		effH:  HeatPumpEfficiency(ta),
		effF:  FossilEfficiency(ta),
	}
}

func (g *Generator) StateDim() int { return GridSize }

// NegativeLifts reports the device lifts whose effective rate is below
// zero. A negative lift is a negative off-diagonal generator entry, so the
// exact solution can leave the non-negative orthant.
func (g *Generator) NegativeLifts() []string {
	var out []string
	if lift := g.rates.H * g.effH; lift < 0 {
		out = append(out, "heat_pump_lift")
	}
	if lift := g.rates.F * g.effF; lift < 0 {
		out = append(out, "fossil_lift")
	}
	return out
}

// Derive returns dx/dt. x must have length GridSize.
func (g *Generator) Derive(x dynamo.State, _ float64) dynamo.State {
	grid := Grid(x)
	dx := make(dynamo.State, GridSize)
	for ti := 0; ti < TempBins; ti++ {
		hadj, cadj := g.ph[ti], g.pc[ti]
		for _, q := range AllQuadrants {
			dx[ti*Quadrants+int(q)] = rules[q](g, grid, ti, hadj, cadj)
		}
	}
	return dx
}

// Rate evaluates a single quadrant rule at bin ti. Derive is the hot path;
// Rate exists so single rules can be checked in isolation by tests.
func (g *Generator) Rate(q Quadrant, x Grid, ti int) float64 {
	return rules[q](g, x, ti, g.ph[ti], g.pc[ti])
}

func allOff(g *Generator, x Grid, ti int, hadj, cadj float64) float64 {
	r := g.rates
	v := x.At(ti, 0, 0)

	d := -v * r.AlphaP * hadj
	d += x.At(ti, 0, 1) * r.AlphaM * cadj
	d -= v * r.PhiP * hadj
	d += x.At(ti, 1, 0) * r.PhiM * cadj

	if ti < TempBins-1 {
		d += x.At(ti+1, 0, 0) * r.L
	}
	if ti > 0 {
		d -= v * r.L
	}
	return d
}

func heatPumpOn(g *Generator, x Grid, ti int, hadj, cadj float64) float64 {
	r := g.rates
	v := x.At(ti, 1, 0)

	d := -v * r.GammaP * hadj
	d += x.At(ti, 1, 1) * r.GammaM * cadj
	d -= v * r.PhiM * cadj
	d += x.At(ti, 0, 0) * r.PhiP * hadj

	lift := r.H * g.effH
	if ti < TempBins-1 {
		d -= v * lift
	}
	if ti > 0 {
		d += x.At(ti-1, 1, 0) * lift
	}
	return d
}

func fossilOn(g *Generator, x Grid, ti int, hadj, cadj float64) float64 {
	r := g.rates
	v := x.At(ti, 0, 1)

	d := -v * r.BetaP * hadj
	d += x.At(ti, 1, 1) * r.BetaM * cadj
	d -= v * r.AlphaM * cadj
	d += x.At(ti, 0, 0) * r.AlphaP * hadj

	lift := r.F * g.effF
	if ti < TempBins-1 {
		d -= v * lift
	}
	if ti > 0 {
		d += x.At(ti-1, 0, 1) * lift
	}
	return d
}

func bothOn(g *Generator, x Grid, ti int, hadj, cadj float64) float64 {
	r := g.rates
	v := x.At(ti, 1, 1)

	d := -v * r.GammaM * cadj
	d += x.At(ti, 1, 0) * r.GammaP * hadj
	d -= v * r.BetaM * cadj
	d += x.At(ti, 0, 1) * r.BetaP * hadj

	if ti < TempBins-1 {
		d -= v * r.Omega
	}
	if ti > 0 {
		d += x.At(ti-1, 1, 1) * r.Omega
	}
	return d
}
