// Package dynamo provides core simulation primitives for ODE systems.
//
// The package defines the fundamental interfaces and types used to
// integrate a system of ordinary differential equations dX/dt = f(X, t):
//
//   - [State]: flat vector representing system state
//   - [System]: interface for ODE systems
//   - [Integrator]: fixed-step numerical integrator
//   - [AdaptiveIntegrator]: error-controlled integrator
//   - [Simulator]: drives an integrator across a vector of output times
//
// # Example
//
//	integ := integrators.NewRK45()
//	s := dynamo.New(dyn, integ)
//	result, err := s.Solve(ctx, x0, times, dynamo.DefaultConfig())
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe: integrators keep scratch
// buffers between steps. Build one simulator per run.
package dynamo
