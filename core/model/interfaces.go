// Package model defines the contracts shared by the occurrence-probability
// estimators (glm, gam, boost) and the fitted-state bookkeeping they embed.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is implemented by estimators that learn from a design matrix X
// (n×1 covariate column) and a binary response y (n×1, values 0/1).
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// ProbabilisticClassifier is a binary-response estimator that returns class
// probabilities. PredictProba returns an n×2 matrix with columns
// [P(y=0), P(y=1)], every entry in [0,1].
type ProbabilisticClassifier interface {
	Fitter
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Name identifies the model family and complexity, e.g. "glm(degree=4)".
	Name() string
}

// WeightExporter is implemented by estimators whose fitted state can be
// written out as ModelWeights.
type WeightExporter interface {
	ExportWeights() (*ModelWeights, error)
}

// ParamGetter exposes hyperparameters for reporting.
type ParamGetter interface {
	GetParams() map[string]interface{}
}

// PositiveColumn extracts P(y=1) (column 1) from a PredictProba result.
func PositiveColumn(proba mat.Matrix) []float64 {
	r, _ := proba.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = proba.At(i, 1)
	}
	return out
}
