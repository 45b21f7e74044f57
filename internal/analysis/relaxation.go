package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/thermalstate/internal/dynamo"
)

var (
	ErrNoStationary = errors.New("no unique stationary distribution")
	ErrEigen        = errors.New("eigen decomposition failed")
)

// GeneratorMatrix materializes a linear, time-independent system as the
// matrix whose column j is the derivative of the j-th unit vector.
func GeneratorMatrix(sys dynamo.System) *mat.Dense {
	n := sys.StateDim()
	q := mat.NewDense(n, n, nil)
	e := make(dynamo.State, n)
	for j := 0; j < n; j++ {
		e[j] = 1
		q.SetCol(j, sys.Derive(e, 0))
		e[j] = 0
	}
	return q
}

// ColumnSums returns the sum of each column of q. They are all zero for a
// generator that conserves mass.
func ColumnSums(q *mat.Dense) []float64 {
	_, c := q.Dims()
	sums := make([]float64, c)
	for j := range sums {
		sums[j] = mat.Sum(q.ColView(j))
	}
	return sums
}

// Stationary solves Q p = 0 subject to sum(p) = mass. One balance row is
// redundant for a conservative generator and is replaced by the mass
// constraint.
func Stationary(q *mat.Dense, mass float64) ([]float64, error) {
	n, c := q.Dims()
	if n != c {
		return nil, fmt.Errorf("%w: generator is %dx%d", ErrNoStationary, n, c)
	}

	a := mat.DenseCopyOf(q)
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	a.SetRow(n-1, ones)

	b := mat.NewVecDense(n, nil)
	b.SetVec(n-1, mass)

	var p mat.VecDense
	if err := p.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %v", ErrNoStationary, err)
		}
	}

	out := mat.Col(nil, 0, &p)
	if floats.HasNaN(out) {
		return nil, ErrNoStationary
	}
	return out, nil
}

// RelaxationRate is the spectral gap of q: the smallest -Re(λ) over the
// eigenvalues λ other than the zero mode. Eigenvalues within tol of zero
// are treated as the zero mode.
func RelaxationRate(q mat.Matrix, tol float64) (float64, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(q, mat.EigenNone); !ok {
		return 0, ErrEigen
	}

	gap := math.Inf(1)
	zeros := 0
	for _, v := range eig.Values(nil) {
		if cmplx.Abs(v) <= tol {
			zeros++
			continue
		}
		gap = math.Min(gap, -real(v))
	}
	if zeros != 1 {
		return 0, fmt.Errorf("%w: %d zero modes", ErrNoStationary, zeros)
	}
	return gap, nil
}

// Distance is the L1 distance between two occupation vectors.
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}
