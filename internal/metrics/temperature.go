package metrics

import (
	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/thermal"
)

// MeanTemperature is the mass-weighted mean indoor bin of the last
// observed grid.
type MeanTemperature struct {
	name string
	mean float64
}

func NewMeanTemperature() *MeanTemperature {
	return &MeanTemperature{name: "mean_bin"}
}

func (m *MeanTemperature) Name() string { return m.name }

func (m *MeanTemperature) Observe(x dynamo.State, t float64) {
	m.mean = thermal.Grid(x).MeanBin()
}

func (m *MeanTemperature) Value() float64 { return m.mean }

func (m *MeanTemperature) Reset() { m.mean = 0 }
