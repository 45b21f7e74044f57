package thermal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/integrators"
	"github.com/san-kum/thermalstate/internal/logging"
)

const (
	DefaultInitialMass = 0.25
	DefaultHorizon     = 25.0
	DefaultPoints      = 25
)

// Model is one (Ta, Tset, Tstart) configuration of the master equation.
// It is immutable after construction; Run may be called any number of
// times and always yields the same trajectory.
type Model struct {
	ta    float64
	tset  float64
	start int

	rates Rates
	curve Curve
	mass  float64
	times []float64

	newIntegrator func() dynamo.Integrator
	solver        dynamo.Config
	observers     []dynamo.Observer

	pc, ph []float64
	x0     Grid
	gen    *Generator
	log    *slog.Logger
}

type Option func(*Model)

func WithRates(r Rates) Option { return func(m *Model) { m.rates = r } }

func WithCurve(c Curve) Option { return func(m *Model) { m.curve = c } }

func WithInitialMass(mass float64) Option { return func(m *Model) { m.mass = mass } }

// WithTimes replaces the output time vector. The slice is copied.
func WithTimes(times []float64) Option {
	return func(m *Model) { m.times = append([]float64(nil), times...) }
}

// WithIntegrator sets the integrator factory. A fresh integrator is built
// for every run.
func WithIntegrator(fn func() dynamo.Integrator) Option {
	return func(m *Model) { m.newIntegrator = fn }
}

func WithSolver(cfg dynamo.Config) Option { return func(m *Model) { m.solver = cfg } }

// WithTolerance sets the relative and absolute error tolerances of the
// adaptive integrator, leaving the rest of the solver config alone.
func WithTolerance(rtol, atol float64) Option {
	return func(m *Model) {
		m.solver.RelTol = rtol
		m.solver.AbsTol = atol
	}
}

// WithObserver registers o to be called at every output sample of every
// run. Observers shared between concurrent runs must be safe for that.
func WithObserver(o dynamo.Observer) Option {
	return func(m *Model) { m.observers = append(m.observers, o) }
}

func WithLogger(l *slog.Logger) Option { return func(m *Model) { m.log = l } }

// New builds a model for ambient temperature ta, setpoint tset and initial
// indoor bin tstart.
func New(ta, tset float64, tstart int, opts ...Option) (*Model, error) {
	if tstart < 0 || tstart >= TempBins {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrStartOutOfRange, tstart, TempBins)
	}

	m := &Model{
		ta:            ta,
		tset:          tset,
		start:         tstart,
		rates:         DefaultRates(),
		curve:         DefaultCurve(),
		mass:          DefaultInitialMass,
		times:         dynamo.Linspace(0, DefaultHorizon, DefaultPoints),
		newIntegrator: func() dynamo.Integrator { return integrators.NewRK45() },
		solver:        dynamo.DefaultConfig(),
		log:           logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.rates.Validate(); err != nil {
		return nil, err
	}
	if m.mass < 0 || math.IsNaN(m.mass) || math.IsInf(m.mass, 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidMass, m.mass)
	}
	if err := m.solver.Validate(); err != nil {
		return nil, err
	}

	m.pc, m.ph = m.curve.Adjustments(tset)
	m.x0 = PointMass(tstart, m.mass)
	m.gen = NewGenerator(m.rates, m.pc, m.ph, ta)

	if lifts := m.gen.NegativeLifts(); len(lifts) > 0 {
		effH, effF := m.gen.effH, m.gen.effF
		m.log.Warn("negative effective lift rate, occupations may go negative",
			"ta", ta, "lifts", lifts, "eff_heat_pump", effH, "eff_fossil", effF)
	}

	return m, nil
}

// Run integrates the master equation over the model's time vector. The
// first grid of the trajectory is the initial condition. On solver
// failure no trajectory is returned.
func (m *Model) Run(ctx context.Context, metrics ...dynamo.Metric) (*Trajectory, error) {
	s := dynamo.New(m.gen, m.newIntegrator())
	for _, metric := range metrics {
		s.AddMetric(metric)
	}
	for _, o := range m.observers {
		s.AddObserver(o)
	}
	if m.log.Enabled(ctx, logging.LevelTrace) {
		s.AddObserver(&sampleTracer{ctx: ctx, log: m.log})
	}

	m.log.Debug("integrating master equation",
		"ta", m.ta, "tset", m.tset, "tstart", m.start, "points", len(m.times))
	start := time.Now()

	result, err := s.Solve(ctx, dynamo.State(m.x0), m.times, m.solver)
	if err != nil {
		m.log.Debug("integration failed", "error", err)
		return nil, fmt.Errorf("thermal: run (ta=%g tset=%g tstart=%d): %w", m.ta, m.tset, m.start, err)
	}

	m.log.Debug("integration complete",
		"steps", result.StepsTaken, "rejected", result.Rejected, "elapsed", time.Since(start))

	traj := &Trajectory{
		Times:    result.Times,
		Grids:    make([]Grid, len(result.States)),
		Steps:    result.StepsTaken,
		Rejected: result.Rejected,
		Metrics:  result.Metrics,
	}
	for i, st := range result.States {
		traj.Grids[i] = Grid(st)
	}
	return traj, nil
}

func (m *Model) Ambient() float64  { return m.ta }
func (m *Model) Setpoint() float64 { return m.tset }
func (m *Model) Start() int        { return m.start }
func (m *Model) Rates() Rates      { return m.rates }
func (m *Model) Curve() Curve      { return m.curve }

func (m *Model) Generator() *Generator { return m.gen }

// Initial returns a copy of the initial condition.
func (m *Model) Initial() Grid { return m.x0.Clone() }

func (m *Model) Times() []float64 { return append([]float64(nil), m.times...) }

// Adjustments returns copies of the precomputed Pc and Ph vectors.
func (m *Model) Adjustments() (pc, ph []float64) {
	return append([]float64(nil), m.pc...), append([]float64(nil), m.ph...)
}

// Efficiencies returns the heat-pump and fossil efficiencies at the
// model's ambient temperature.
func (m *Model) Efficiencies() (heatPump, fossil float64) {
	return m.gen.effH, m.gen.effF
}

// sampleTracer logs one line per output sample at trace level.
type sampleTracer struct {
	ctx context.Context
	log *slog.Logger
}

func (s *sampleTracer) OnSample(index int, x dynamo.State, t float64) {
	g := Grid(x)
	s.log.Log(s.ctx, logging.LevelTrace, "sample",
		"index", index, "t", t, "mass", g.Total(), "mean_bin", g.MeanBin(), "min", g.Min())
}
