// Package render draws the two summary views of a trajectory: the device
// state vector S[h,f] and the indoor temperature distribution, one series
// per display snapshot. Terminal output uses asciigraph; image output uses
// gonum/plot.
package render
