package boost

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

// Objective is a twice-differentiable loss on the raw score (log-odds).
type Objective interface {
	// Gradient returns dL/dscore for a single sample.
	Gradient(score, target float64) float64

	// Hessian returns d²L/dscore² for a single sample.
	Hessian(score, target float64) float64

	// Loss returns the per-sample loss.
	Loss(score, target float64) float64

	// InitScore returns the constant score minimizing the total loss.
	InitScore(targets []float64) float64

	Name() string
}

// BinaryLogloss is the Bernoulli deviance / 2 with a logit link.
type BinaryLogloss struct{}

// NewBinaryLogloss returns the binary log-loss objective.
func NewBinaryLogloss() *BinaryLogloss {
	return &BinaryLogloss{}
}

// Gradient returns p - y.
func (o *BinaryLogloss) Gradient(score, target float64) float64 {
	return errors.Sigmoid(score) - target
}

// Hessian returns p(1-p).
func (o *BinaryLogloss) Hessian(score, target float64) float64 {
	p := errors.Sigmoid(score)
	return p * (1 - p)
}

// Loss returns log(1+e^s) - y·s, evaluated without overflow.
func (o *BinaryLogloss) Loss(score, target float64) float64 {
	return softplus(score) - target*score
}

// InitScore returns the log-odds of the mean response.
func (o *BinaryLogloss) InitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	return errors.Logit(stat.Mean(targets, nil))
}

// Name returns "binary_logloss".
func (o *BinaryLogloss) Name() string {
	return "binary_logloss"
}

func softplus(s float64) float64 {
	if s > 0 {
		return s + math.Log1p(math.Exp(-s))
	}
	return math.Log1p(math.Exp(s))
}
