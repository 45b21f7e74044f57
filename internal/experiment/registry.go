package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/integrators"
	"github.com/san-kum/thermalstate/internal/metrics"
)

type Registry struct {
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }

	return r
}

// Integrator returns the factory for name; the model calls it once per run.
func (r *Registry) Integrator(name string) (func() dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn, nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewTotalMass(),
		metrics.NewMassDrift(),
		metrics.NewMeanTemperature(),
		metrics.NewHeatPumpDuty(),
		metrics.NewFossilDuty(),
		metrics.NewMinOccupation(),
	}
}
