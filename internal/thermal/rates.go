package thermal

import (
	"fmt"
	"math"
)

// Rates holds the transition-rate constants of the master equation.
//
// Device transitions: alpha links all-off and fossil-only, phi links
// all-off and heat-pump-only, gamma links heat-pump-only and both-on,
// beta links fossil-only and both-on. The P suffix is the switch-on
// direction (weighted by Ph), M the switch-off direction (weighted by Pc).
//
// Temperature transitions: L is passive loss one bin down while all
// devices are off; H, F and Omega lift one bin up with the heat pump,
// the furnace or both running.
type Rates struct {
	AlphaP float64 `yaml:"alpha_p" json:"alpha_p"`
	AlphaM float64 `yaml:"alpha_m" json:"alpha_m"`
	PhiP   float64 `yaml:"phi_p" json:"phi_p"`
	PhiM   float64 `yaml:"phi_m" json:"phi_m"`
	GammaP float64 `yaml:"gamma_p" json:"gamma_p"`
	GammaM float64 `yaml:"gamma_m" json:"gamma_m"`
	BetaP  float64 `yaml:"beta_p" json:"beta_p"`
	BetaM  float64 `yaml:"beta_m" json:"beta_m"`

	L     float64 `yaml:"loss" json:"loss"`
	F     float64 `yaml:"fossil_lift" json:"fossil_lift"`
	H     float64 `yaml:"heat_pump_lift" json:"heat_pump_lift"`
	Omega float64 `yaml:"combined_lift" json:"combined_lift"`
}

func DefaultRates() Rates {
	return Rates{
		AlphaP: 0.126,
		AlphaM: 0.13,
		PhiP:   0.874,
		PhiM:   0.13,
		GammaP: 0.87,
		GammaM: 0.874,
		BetaP:  0.87,
		BetaM:  0.126,

		L:     0.8,
		F:     0.5,
		H:     0.3,
		Omega: 0.8,
	}
}

type namedRate struct {
	name  string
	value float64
}

func (r Rates) named() []namedRate {
	return []namedRate{
		{"alpha_p", r.AlphaP}, {"alpha_m", r.AlphaM},
		{"phi_p", r.PhiP}, {"phi_m", r.PhiM},
		{"gamma_p", r.GammaP}, {"gamma_m", r.GammaM},
		{"beta_p", r.BetaP}, {"beta_m", r.BetaM},
		{"loss", r.L}, {"fossil_lift", r.F}, {"heat_pump_lift", r.H}, {"combined_lift", r.Omega},
	}
}

// Validate rejects negative or non-finite rates. The first offending rate
// in declaration order is reported.
func (r Rates) Validate() error {
	for _, nr := range r.named() {
		if nr.value < 0 || math.IsNaN(nr.value) || math.IsInf(nr.value, 0) {
			return fmt.Errorf("%w: %s = %g", ErrInvalidRates, nr.name, nr.value)
		}
	}
	return nil
}

// Curve is the logistic setpoint weighting.
type Curve struct {
	Lag   float64 `yaml:"lag" json:"lag"`
	Slope float64 `yaml:"slope" json:"slope"`
}

func DefaultCurve() Curve {
	return Curve{Lag: -2, Slope: 0.25}
}

// Cooling is the probability Pc that bin x favors switching devices off
// relative to setpoint tset.
func (c Curve) Cooling(x, tset float64) float64 {
	return 1 / (1 + math.Exp(-c.Slope*(x-tset-c.Lag)))
}

// Heating is Ph = 1 - Pc.
func (c Curve) Heating(x, tset float64) float64 {
	return 1 - c.Cooling(x, tset)
}

// Adjustments precomputes Pc and Ph for every temperature bin.
func (c Curve) Adjustments(tset float64) (pc, ph []float64) {
	pc = make([]float64, TempBins)
	ph = make([]float64, TempBins)
	for i := range pc {
		pc[i] = c.Cooling(float64(i), tset)
		ph[i] = 1 - pc[i]
	}
	return pc, ph
}

// HeatPumpEfficiency degrades at low ambient temperature and tends to 1
// as ta grows.
func HeatPumpEfficiency(ta float64) float64 {
	return 1 - 0.05*math.Exp(-0.2*ta)
}

func FossilEfficiency(ta float64) float64 {
	return 0.9 + 0.001*ta
}
