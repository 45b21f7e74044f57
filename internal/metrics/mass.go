package metrics

import (
	"math"

	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/thermal"
)

// TotalMass reports the total probability mass of the last observed grid.
type TotalMass struct {
	name  string
	total float64
}

func NewTotalMass() *TotalMass {
	return &TotalMass{name: "total_mass"}
}

func (m *TotalMass) Name() string { return m.name }

func (m *TotalMass) Observe(x dynamo.State, t float64) {
	m.total = thermal.Grid(x).Total()
}

func (m *TotalMass) Value() float64 { return m.total }

func (m *TotalMass) Reset() { m.total = 0 }

// MassDrift is the largest absolute deviation of total mass from the
// first sample. The generator conserves mass, so anything above solver
// tolerance points at a broken rule table.
type MassDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift() *MassDrift {
	return &MassDrift{name: "mass_drift"}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(x dynamo.State, t float64) {
	total := thermal.Grid(x).Total()
	if m.samples == 0 {
		m.initial = total
	}
	m.samples++
	m.maxDrift = math.Max(m.maxDrift, math.Abs(total-m.initial))
}

func (m *MassDrift) Value() float64 { return m.maxDrift }

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}
