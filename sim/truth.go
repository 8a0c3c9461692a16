package sim

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/occusim/core/parallel"
)

// studentT2 is the standard Student's t distribution with 2 degrees of freedom.
var studentT2 = distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 2}

// TruthFunc maps a covariate value to an occurrence probability in [0,1].
type TruthFunc func(x float64) float64

// TruthArgument returns the value passed to the t CDF for x. The step term
// jumps by +1 when x crosses 0.
func TruthArgument(x float64) float64 {
	step := -0.5
	if x > 0 {
		step = 0.5
	}
	s := math.Sin(x)
	return x/2 + s*s - x*x/5 + step
}

// Truth is the ground-truth occurrence probability f(x). It is pure and total
// over the finite reals.
func Truth(x float64) float64 {
	return studentT2.CDF(TruthArgument(x))
}

// TruthCurve evaluates Truth at every grid point.
func TruthCurve(grid []float64) Curve {
	return CurveOf(grid, Truth)
}

// CurveOf evaluates f at every grid point. f must be safe for concurrent use.
func CurveOf(grid []float64, f TruthFunc) Curve {
	return Curve{
		X: append([]float64(nil), grid...),
		P: parallel.Map(grid, f),
	}
}
