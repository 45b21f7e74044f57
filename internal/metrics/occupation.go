package metrics

import (
	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/thermal"
)

// MinOccupation tracks the smallest cell value seen. Values slightly
// below zero are integration round-off.
type MinOccupation struct {
	name    string
	min     float64
	samples int
}

func NewMinOccupation() *MinOccupation {
	return &MinOccupation{name: "min_occupation"}
}

func (m *MinOccupation) Name() string { return m.name }

func (m *MinOccupation) Observe(x dynamo.State, t float64) {
	v := thermal.Grid(x).Min()
	if m.samples == 0 || v < m.min {
		m.min = v
	}
	m.samples++
}

func (m *MinOccupation) Value() float64 { return m.min }

func (m *MinOccupation) Reset() {
	m.min = 0
	m.samples = 0
}
