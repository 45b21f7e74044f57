// Package thermal models the stochastic on/off state of a building heating
// system as a continuous-time master equation.
//
// The state space is a grid over (Ti, h, f): an indoor temperature bin
// Ti in [0, [TempBins]), a heat-pump flag h and a fossil-furnace flag f.
// Each cell holds occupation probability mass. A [Model] owns the rate
// parameters, the logistic setpoint weighting and the efficiency curves,
// and integrates the [Generator] over a fixed time vector:
//
//	m, err := thermal.New(0, 20, 15)
//	if err != nil {
//	    return err
//	}
//	traj, err := m.Run(ctx)
//	for _, snap := range traj.DisplaySnapshots() {
//	    fmt.Println(snap.State, snap.Distribution)
//	}
//
// The four device-state quadrants each have their own rate rule; every
// outflow of one rule is the inflow of exactly one other, so total mass
// is conserved and the temperature axis reflects at its edges.
package thermal
