package metrics

import (
	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/thermal"
)

// Duty averages, over all samples, the share of mass in which a device is
// running. Samples with no mass are skipped.
type Duty struct {
	name    string
	running func(thermal.Quadrant) bool
	sum     float64
	samples int
}

func NewHeatPumpDuty() *Duty {
	return &Duty{
		name:    "heat_pump_duty",
		running: func(q thermal.Quadrant) bool { return q.HeatPump() == 1 },
	}
}

func NewFossilDuty() *Duty {
	return &Duty{
		name:    "fossil_duty",
		running: func(q thermal.Quadrant) bool { return q.Fossil() == 1 },
	}
}

func (d *Duty) Name() string { return d.name }

func (d *Duty) Observe(x dynamo.State, t float64) {
	state := thermal.Grid(x).DeviceState()
	var on, total float64
	for _, q := range thermal.AllQuadrants {
		total += state[q]
		if d.running(q) {
			on += state[q]
		}
	}
	if total <= 0 {
		return
	}
	d.sum += on / total
	d.samples++
}

func (d *Duty) Value() float64 {
	if d.samples == 0 {
		return 0
	}
	return d.sum / float64(d.samples)
}

func (d *Duty) Reset() {
	d.sum = 0
	d.samples = 0
}
