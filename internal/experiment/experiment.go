package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/thermalstate/internal/config"
	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/logging"
	"github.com/san-kum/thermalstate/internal/thermal"
)

type Experiment struct {
	cfg       *config.Config
	model     *thermal.Model
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	log       *slog.Logger
}

func New(cfg *config.Config, log *slog.Logger) *Experiment {
	if log == nil {
		log = logging.Discard()
	}
	return &Experiment{cfg: cfg.Clone(), log: log}
}

// AddObserver registers o with the model built by the next Setup.
func (e *Experiment) AddObserver(o dynamo.Observer) {
	e.observers = append(e.observers, o)
}

// Setup validates the config and builds the model. Passing no metrics
// installs the registry defaults.
func (e *Experiment) Setup(reg *Registry, metrics ...dynamo.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	newIntegrator, err := reg.Integrator(e.cfg.Integrator)
	if err != nil {
		return err
	}

	opts := []thermal.Option{
		thermal.WithRates(e.cfg.Rates),
		thermal.WithCurve(e.cfg.Curve),
		thermal.WithInitialMass(e.cfg.InitialMass),
		thermal.WithTimes(e.cfg.Times()),
		thermal.WithIntegrator(newIntegrator),
		thermal.WithSolver(e.cfg.Solver()),
		thermal.WithLogger(e.log),
	}
	for _, o := range e.observers {
		opts = append(opts, thermal.WithObserver(o))
	}

	model, err := thermal.New(e.cfg.Ambient, e.cfg.Setpoint, e.cfg.Start, opts...)
	if err != nil {
		return err
	}

	if len(metrics) == 0 {
		metrics = reg.DefaultMetrics()
	}
	e.model = model
	e.metrics = metrics
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*thermal.Trajectory, error) {
	if e.model == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.model.Run(ctx, e.metrics...)
}

func (e *Experiment) Model() *thermal.Model { return e.model }

func (e *Experiment) Config() *config.Config { return e.cfg.Clone() }
