// Package analysis characterizes the long-run behavior of a linear
// master equation.
//
//   - [GeneratorMatrix]: the dense rate matrix Q with dx/dt = Q x
//   - [Stationary]: the distribution p with Q p = 0 and a given total mass
//   - [RelaxationRate]: the spectral gap, the slowest decay rate towards p
//
// # Convergence
//
// Every eigenvalue of a conservative, irreducible generator other than
// the single zero has a negative real part. The spectral gap bounds how
// fast any initial condition forgets where it started:
//
//	q := analysis.GeneratorMatrix(gen)
//	gap, _ := analysis.RelaxationRate(q)
//	// distance to the stationary distribution shrinks roughly as exp(-gap*t)
package analysis
