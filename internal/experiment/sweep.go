package experiment

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/thermalstate/internal/config"
)

// Sweepable parameters.
const (
	ParamStart    = "start"
	ParamAmbient  = "ambient"
	ParamSetpoint = "setpoint"
)

// SweepPoint summarizes one run of a sweep.
type SweepPoint struct {
	Value   float64            `json:"value"`
	Metrics map[string]float64 `json:"metrics"`
	Steps   int                `json:"steps"`
}

type Sweep struct {
	param  string
	values []float64
	limit  int
}

// NewSweep runs one experiment per value of param. limit caps the number
// of concurrent runs; zero means GOMAXPROCS.
func NewSweep(param string, values []float64, limit int) (*Sweep, error) {
	switch param {
	case ParamStart, ParamAmbient, ParamSetpoint:
	default:
		return nil, fmt.Errorf("unknown sweep parameter: %s", param)
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &Sweep{param: param, values: append([]float64(nil), values...), limit: limit}, nil
}

// Run executes the sweep. Points come back in the order of the values; the
// first failure cancels the rest.
func (s *Sweep) Run(ctx context.Context, base *config.Config, reg *Registry) ([]SweepPoint, error) {
	points := make([]SweepPoint, len(s.values))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	for i, v := range s.values {
		cfg, err := s.apply(base, v)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			exp := New(cfg, nil)
			if err := exp.Setup(reg); err != nil {
				return fmt.Errorf("%s=%g: %w", s.param, v, err)
			}
			traj, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", s.param, v, err)
			}
			points[i] = SweepPoint{Value: v, Metrics: traj.Metrics, Steps: traj.Steps}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Sweep) apply(base *config.Config, v float64) (*config.Config, error) {
	cfg := base.Clone()
	switch s.param {
	case ParamStart:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("start must be an integer bin, got %g", v)
		}
		cfg.Start = int(v)
	case ParamAmbient:
		cfg.Ambient = v
	case ParamSetpoint:
		cfg.Setpoint = v
	}
	return cfg, nil
}

// Best returns the point minimizing metric. ok is false when no point
// reports it.
func Best(points []SweepPoint, metric string) (best SweepPoint, ok bool) {
	bestVal := math.Inf(1)
	for _, p := range points {
		val, found := p.Metrics[metric]
		if !found {
			continue
		}
		if val < bestVal {
			bestVal = val
			best = p
			ok = true
		}
	}
	return best, ok
}

// Range returns the values start, start+step, ... up to and including stop.
func Range(start, stop, step float64) []float64 {
	if step <= 0 || stop < start {
		return nil
	}
	n := int(math.Floor((stop-start)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
