package dynamo

import (
	"context"
	"errors"
	"math"
)

type Simulator struct {
	dyn        System
	integrator Integrator
	metrics    []Metric
	observers  []Observer
}

func New(dyn System, integrator Integrator) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Solve integrates from x0 at times[0] and samples the state at every
// entry of times. The integrator always lands exactly on each output time.
// On failure no partial result is returned.
func (s *Simulator) Solve(ctx context.Context, x0 State, times []float64, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateTimes(times); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, ErrDimensionMismatch
	}
	if cfg.ValidateState && !x0.IsValid() {
		return nil, &SimulationError{Step: 0, Time: times[0], State: x0.Clone(), Wrapped: ErrInvalidState}
	}

	result := &Result{
		States:  make([]State, 0, len(times)),
		Times:   make([]float64, 0, len(times)),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := times[0]
	s.sample(result, 0, x, t)

	span := times[len(times)-1] - times[0]
	dt := cfg.Dt
	if dt <= 0 {
		dt = span / 100
		if len(times) > 1 {
			dt = math.Min(dt, times[1]-times[0])
		}
	}
	maxDt := cfg.MaxDt
	if maxDt <= 0 {
		maxDt = span
	}

	adaptive, isAdaptive := s.integrator.(AdaptiveIntegrator)

	for i := 1; i < len(times); i++ {
		target := times[i]

		for t < target {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			if result.StepsTaken+result.Rejected >= cfg.MaxSteps {
				return nil, &SimulationError{Step: result.StepsTaken, Time: t, State: x, Wrapped: ErrMaxSteps}
			}

			h := math.Min(dt, maxDt)
			truncated := false
			if t+h >= target {
				h = target - t
				truncated = true
			}

			var newX State
			if isAdaptive {
				var next float64
				var err error
				newX, next, err = adaptive.StepAdaptive(s.dyn, x, t, h, cfg.RelTol, cfg.AbsTol)
				if errors.Is(err, ErrStepRejected) {
					result.Rejected++
					dt = next
					if dt < cfg.MinDt {
						return nil, &SimulationError{Step: result.StepsTaken, Time: t, State: x, Wrapped: ErrStepTooSmall}
					}
					continue
				}
				if err != nil {
					return nil, &SimulationError{Step: result.StepsTaken, Time: t, State: x, Wrapped: err}
				}
				if !truncated || next < dt {
					dt = next
				}
			} else {
				newX = s.integrator.Step(s.dyn, x, t, h)
			}

			if cfg.ValidateState && !newX.IsValid() {
				return nil, &SimulationError{Step: result.StepsTaken, Time: t, State: x, Wrapped: ErrInvalidState}
			}

			x = newX
			if truncated {
				t = target
			} else {
				t += h
			}
			result.StepsTaken++
		}

		s.sample(result, i, x, target)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) sample(result *Result, index int, x State, t float64) {
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnSample(index, x, t)
	}
}

func validateTimes(times []float64) error {
	if len(times) == 0 {
		return ErrTimeGrid
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ErrTimeGrid
		}
		if i > 0 && t <= times[i-1] {
			return ErrTimeGrid
		}
	}
	return nil
}

// Linspace returns n evenly spaced values over [start, stop], both ends
// included.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
