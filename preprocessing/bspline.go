package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

// BSplineBasis is a B-spline basis of NumBasis functions of the given degree
// on equally spaced knots. The knot sequence extends Degree intervals beyond
// [Lo, Hi] on each side, so the basis sums to one everywhere in [Lo, Hi].
// Values outside [Lo, Hi] are clamped to the nearest bound.
type BSplineBasis struct {
	NumBasis int
	Degree   int
	Lo, Hi   float64
	knots    []float64
}

// NewBSplineBasis builds a basis over [lo, hi]. numBasis must exceed degree.
func NewBSplineBasis(numBasis, degree int, lo, hi float64) (*BSplineBasis, error) {
	if degree < 0 {
		return nil, errors.NewValidationError("degree", "must be non-negative", degree)
	}
	if numBasis <= degree {
		return nil, errors.NewValidationError("num_basis", fmt.Sprintf("must exceed degree %d", degree), numBasis)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo >= hi {
		return nil, errors.NewValidationError("range", "must be finite with lo < hi", [2]float64{lo, hi})
	}

	nseg := numBasis - degree
	dx := (hi - lo) / float64(nseg)
	knots := make([]float64, numBasis+degree+1)
	for j := range knots {
		knots[j] = lo + float64(j-degree)*dx
	}
	// Pin the interior boundary knots so clamped inputs land exactly on them.
	knots[degree] = lo
	knots[numBasis] = hi

	return &BSplineBasis{
		NumBasis: numBasis,
		Degree:   degree,
		Lo:       lo,
		Hi:       hi,
		knots:    knots,
	}, nil
}

// Knots returns a copy of the full knot sequence.
func (b *BSplineBasis) Knots() []float64 {
	return append([]float64(nil), b.knots...)
}

// Evaluate writes the NumBasis basis values at x into dst and returns it.
// A nil dst is allocated.
func (b *BSplineBasis) Evaluate(x float64, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, b.NumBasis)
	}
	x = errors.ClipValue(x, b.Lo, b.Hi)

	t := b.knots
	m := len(t) - 1
	n := make([]float64, m)

	// Degree 0: indicator of [t_j, t_{j+1}); x == Hi falls in the interval
	// starting at Hi, which still lies inside the extended knot sequence.
	for j := 0; j < m; j++ {
		if t[j] <= x && x < t[j+1] {
			n[j] = 1
			break
		}
	}
	// Cox-de Boor recursion.
	for d := 1; d <= b.Degree; d++ {
		for j := 0; j < m-d; j++ {
			v := 0.0
			if den := t[j+d] - t[j]; den > 0 {
				v += (x - t[j]) / den * n[j]
			}
			if den := t[j+d+1] - t[j+1]; den > 0 {
				v += (t[j+d+1] - x) / den * n[j+1]
			}
			n[j] = v
		}
	}
	copy(dst, n[:b.NumBasis])
	return dst
}

// Transform evaluates the basis at each row of an n×1 matrix, returning n×NumBasis.
func (b *BSplineBasis) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError("BSplineBasis.Transform", 1, c, 1)
	}
	out := mat.NewDense(r, b.NumBasis, nil)
	for i := 0; i < r; i++ {
		b.Evaluate(X.At(i, 0), out.RawRowView(i))
	}
	return out, nil
}

// DifferenceMatrix returns the (k-order)×k matrix of order-th differences.
func DifferenceMatrix(k, order int) (*mat.Dense, error) {
	if order < 1 || order >= k {
		return nil, errors.NewValidationError("penalty_order", fmt.Sprintf("must be in [1, %d)", k), order)
	}
	d := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		d.Set(i, i, 1)
	}
	rows := k
	for o := 0; o < order; o++ {
		next := mat.NewDense(rows-1, k, nil)
		for i := 0; i < rows-1; i++ {
			for j := 0; j < k; j++ {
				next.Set(i, j, d.At(i+1, j)-d.At(i, j))
			}
		}
		d = next
		rows--
	}
	return d, nil
}

// DifferencePenalty returns DᵀD for the order-th difference matrix D on k
// coefficients (the P-spline roughness penalty).
func DifferencePenalty(k, order int) (*mat.SymDense, error) {
	d, err := DifferenceMatrix(k, order)
	if err != nil {
		return nil, err
	}
	p := mat.NewSymDense(k, nil)
	p.SymOuterK(1, d.T())
	return p, nil
}
