package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/thermal"
)

func TestTotalMass(t *testing.T) {
	m := NewTotalMass()
	m.Observe(dynamo.State(thermal.PointMass(10, 0.25)), 0)
	if m.Value() != 0.25 {
		t.Errorf("expected 0.25, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestMassDrift(t *testing.T) {
	m := NewMassDrift()
	m.Observe(dynamo.State(thermal.PointMass(10, 0.25)), 0)
	m.Observe(dynamo.State(thermal.PointMass(11, 0.26)), 1)
	m.Observe(dynamo.State(thermal.PointMass(12, 0.25)), 2)

	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("expected drift 0.01, got %f", m.Value())
	}

	m.Reset()
	m.Observe(dynamo.State(thermal.PointMass(3, 1)), 0)
	if m.Value() != 0 {
		t.Errorf("expected zero drift on first sample after reset, got %f", m.Value())
	}
}

func TestMeanTemperature(t *testing.T) {
	g := thermal.NewGrid()
	g.Set(10, 0, 0, 0.5)
	g.Set(20, 1, 1, 0.5)

	m := NewMeanTemperature()
	m.Observe(dynamo.State(g), 0)
	if math.Abs(m.Value()-15) > 1e-12 {
		t.Errorf("expected mean bin 15, got %f", m.Value())
	}
}

func TestDuty(t *testing.T) {
	g := thermal.NewGrid()
	g.Set(5, 0, 0, 0.1)
	g.Set(5, 1, 0, 0.2)
	g.Set(6, 0, 1, 0.3)
	g.Set(7, 1, 1, 0.4)

	tests := []struct {
		name string
		m    *Duty
		want float64
	}{
		{"heat_pump_duty", NewHeatPumpDuty(), 0.6},
		{"fossil_duty", NewFossilDuty(), 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.m.Name() != tt.name {
				t.Errorf("expected name %s, got %s", tt.name, tt.m.Name())
			}
			tt.m.Observe(dynamo.State(g), 0)
			tt.m.Observe(dynamo.State(thermal.PointMass(1, 1)), 1)
			want := (tt.want + 0) / 2
			if math.Abs(tt.m.Value()-want) > 1e-12 {
				t.Errorf("expected %f, got %f", want, tt.m.Value())
			}
		})
	}
}

func TestDutySkipsEmptyGrid(t *testing.T) {
	d := NewHeatPumpDuty()
	d.Observe(dynamo.State(thermal.NewGrid()), 0)
	if d.Value() != 0 {
		t.Errorf("expected 0 for empty grid, got %f", d.Value())
	}
}

func TestMinOccupation(t *testing.T) {
	m := NewMinOccupation()

	g := thermal.PointMass(0, 1)
	m.Observe(dynamo.State(g), 0)
	if m.Value() != 0 {
		t.Errorf("expected 0, got %f", m.Value())
	}

	g = g.Clone()
	g.Set(4, 1, 1, -1e-12)
	m.Observe(dynamo.State(g), 1)
	if m.Value() != -1e-12 {
		t.Errorf("expected -1e-12, got %g", m.Value())
	}
}
