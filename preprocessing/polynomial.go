package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

// PolynomialFeatures expands a single covariate column z into the powers
// [z, z², ..., z^Degree]. No bias column is produced.
type PolynomialFeatures struct {
	Degree int
}

// NewPolynomialFeatures returns an expander of the given degree.
func NewPolynomialFeatures(degree int) (*PolynomialFeatures, error) {
	if degree < 1 {
		return nil, errors.NewValidationError("degree", "must be at least 1", degree)
	}
	return &PolynomialFeatures{Degree: degree}, nil
}

// Expand writes the powers of z into dst (length Degree) and returns it.
// A nil dst is allocated.
func (p *PolynomialFeatures) Expand(z float64, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, p.Degree)
	}
	v := 1.0
	for d := 0; d < p.Degree; d++ {
		v *= z
		dst[d] = v
	}
	return dst
}

// Transform expands an n×1 matrix into n×Degree.
func (p *PolynomialFeatures) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError("PolynomialFeatures.Transform", 1, c, 1)
	}
	out := mat.NewDense(r, p.Degree, nil)
	for i := 0; i < r; i++ {
		p.Expand(X.At(i, 0), out.RawRowView(i))
	}
	return out, nil
}

// FeatureNames returns "z^1" ... "z^Degree".
func (p *PolynomialFeatures) FeatureNames() []string {
	names := make([]string, p.Degree)
	for d := range names {
		names[d] = fmt.Sprintf("z^%d", d+1)
	}
	return names
}
