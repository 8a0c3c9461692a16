package sim

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

// Domain is the closed covariate interval [Lo, Hi] from which x is drawn.
type Domain struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// DefaultDomain is [-6, 6].
func DefaultDomain() Domain {
	return Domain{Lo: -6, Hi: 6}
}

// Validate returns an InvalidArgumentError unless both bounds are finite and
// Lo < Hi. op names the caller in the error.
func (d Domain) Validate(op string) error {
	if math.IsNaN(d.Lo) || math.IsInf(d.Lo, 0) {
		return errors.NewInvalidArgumentError(op, "lo", "must be finite", d.Lo)
	}
	if math.IsNaN(d.Hi) || math.IsInf(d.Hi, 0) {
		return errors.NewInvalidArgumentError(op, "hi", "must be finite", d.Hi)
	}
	if d.Lo >= d.Hi {
		return errors.NewInvalidArgumentError(op, "domain", "lo must be less than hi", [2]float64{d.Lo, d.Hi})
	}
	return nil
}

// Contains reports whether x lies in [Lo, Hi].
func (d Domain) Contains(x float64) bool {
	return x >= d.Lo && x <= d.Hi
}

// Width returns Hi - Lo.
func (d Domain) Width() float64 {
	return d.Hi - d.Lo
}

// Grid returns n evenly spaced points from lo to hi inclusive.
func Grid(lo, hi float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, errors.NewInvalidArgumentError("sim.Grid", "n", "must be at least 2", n)
	}
	if err := (Domain{Lo: lo, Hi: hi}).Validate("sim.Grid"); err != nil {
		return nil, err
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}

// Grid returns n evenly spaced points spanning the domain.
func (d Domain) Grid(n int) ([]float64, error) {
	return Grid(d.Lo, d.Hi, n)
}

// Curve is a probability curve sampled at grid points X.
type Curve struct {
	X []float64 `json:"x"`
	P []float64 `json:"p"`
}

// Len returns the number of points.
func (c Curve) Len() int {
	return len(c.X)
}

// XY returns the i-th point. It satisfies gonum/plot's plotter.XYer.
func (c Curve) XY(i int) (float64, float64) {
	return c.X[i], c.P[i]
}
