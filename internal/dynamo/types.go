package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Sum returns the plain sum of all components.
func (s State) Sum() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an autonomous or time-dependent ODE right-hand side.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Integrator interface {
	Step(dyn System, x State, t, dt float64) State
}

// AdaptiveIntegrator attempts one step of size dt and reports the next
// suggested step. A rejected attempt returns ErrStepRejected and leaves x
// untouched.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, t, dt, rtol, atol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnSample(index int, x State, t float64)
}

type Config struct {
	// Dt is the first trial step for adaptive integrators and the fixed
	// step otherwise. Zero picks a fraction of the time span.
	Dt            float64
	RelTol        float64
	AbsTol        float64
	MaxDt         float64
	MinDt         float64
	MaxSteps      int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0,
		RelTol:        1.49012e-8,
		AbsTol:        1.49012e-8,
		MaxDt:         0,
		MinDt:         1e-12,
		MaxSteps:      500000,
		ValidateState: true,
	}
}

func (c Config) Validate() error {
	if c.Dt < 0 {
		return fmt.Errorf("%w: dt must be non-negative, got %g", ErrParameterBounds, c.Dt)
	}
	if c.RelTol <= 0 || c.AbsTol <= 0 {
		return fmt.Errorf("%w: tolerances must be positive (rtol=%g, atol=%g)", ErrParameterBounds, c.RelTol, c.AbsTol)
	}
	if c.MaxDt < 0 || c.MinDt < 0 {
		return fmt.Errorf("%w: step bounds must be non-negative", ErrParameterBounds)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("%w: max steps must be positive, got %d", ErrParameterBounds, c.MaxSteps)
	}
	return nil
}

// Result holds one state per requested output time.
type Result struct {
	States     []State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Rejected   int
}
