// Package glm fits polynomial logistic regression: a binomial GLM with logit
// link whose linear predictor is a polynomial of fixed degree in the
// covariate.
package glm

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/core/model"
	"github.com/YuminosukeSato/occusim/core/parallel"
	"github.com/YuminosukeSato/occusim/linear"
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
	"github.com/YuminosukeSato/occusim/preprocessing"
)

const modelName = "PolynomialGLM"

// PolynomialGLM is logit P(y=1|x) = β₀ + Σ_d β_d z^d with z the standardized
// covariate. Higher degree means a more flexible curve.
type PolynomialGLM struct {
	state *model.StateManager

	// Hyperparameters
	degree  int
	maxIter int
	tol     float64
	ridge   float64

	// Fitted parameters
	scaler    *preprocessing.StandardScaler
	poly      *preprocessing.PolynomialFeatures
	intercept float64
	coef      []float64
	deviance  float64
	nIter     int
	converged bool

	logger log.Logger
}

// Option configures a PolynomialGLM.
type Option func(*PolynomialGLM)

// DefaultDegree is the polynomial degree used when WithDegree is not given.
const DefaultDegree = 2

// New creates a PolynomialGLM. Defaults: degree 2, 100 IRLS iterations,
// tolerance 1e-8, ridge 1e-8 on the non-intercept coefficients.
func New(opts ...Option) *PolynomialGLM {
	m := &PolynomialGLM{
		state:   model.NewStateManager(),
		degree:  DefaultDegree,
		maxIter: 100,
		tol:     1e-8,
		ridge:   1e-8,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.GetLoggerWithName("glm")
	}
	return m
}

// WithDegree sets the polynomial degree (≥ 1).
func WithDegree(d int) Option {
	return func(m *PolynomialGLM) {
		m.degree = d
	}
}

// WithMaxIter sets the maximum number of IRLS iterations.
func WithMaxIter(n int) Option {
	return func(m *PolynomialGLM) {
		m.maxIter = n
	}
}

// WithTol sets the IRLS convergence tolerance.
func WithTol(tol float64) Option {
	return func(m *PolynomialGLM) {
		m.tol = tol
	}
}

// WithRidge sets the L2 penalty on non-intercept coefficients (≥ 0). A tiny
// ridge keeps the fit finite when the data are separable.
func WithRidge(lambda float64) Option {
	return func(m *PolynomialGLM) {
		m.ridge = lambda
	}
}

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option {
	return func(m *PolynomialGLM) {
		m.logger = l
	}
}

func (m *PolynomialGLM) validate() error {
	if m.degree < 1 {
		return errors.NewValidationError("degree", "must be at least 1", m.degree)
	}
	if m.ridge < 0 {
		return errors.NewValidationError("ridge", "must be non-negative", m.ridge)
	}
	return nil
}

// Fit trains the model on X (n×1) and y (n×1, 0/1).
func (m *PolynomialGLM) Fit(X, y mat.Matrix) error {
	const op = "PolynomialGLM.Fit"
	if err := m.validate(); err != nil {
		return err
	}
	n, err := model.ValidateFitInput(op, X, y, 1)
	if err != nil {
		return err
	}
	if n <= m.degree {
		return errors.NewValueError(op, fmt.Sprintf("need more than %d observations for degree %d", m.degree, m.degree))
	}
	cfg, err := linear.NewIRLSConfig(
		linear.WithMaxIter(m.maxIter),
		linear.WithTol(m.tol),
		linear.WithAlgorithm("glm IRLS"),
		linear.WithLogger(m.logger),
	)
	if err != nil {
		return err
	}

	start := time.Now()
	m.state.Reset()

	scaler := preprocessing.NewStandardScalerDefault()
	if err := scaler.Fit(X); err != nil {
		return err
	}
	poly, err := preprocessing.NewPolynomialFeatures(m.degree)
	if err != nil {
		return err
	}

	design := mat.NewDense(n, m.degree+1, nil)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		row := design.RawRowView(i)
		row[0] = 1
		poly.Expand(scaler.TransformValue(X.At(i, 0)), row[1:])
		ys[i] = y.At(i, 0)
	}

	var penalty *mat.SymDense
	if m.ridge > 0 {
		penalty = mat.NewSymDense(m.degree+1, nil)
		for j := 1; j <= m.degree; j++ {
			penalty.SetSym(j, j, m.ridge)
		}
	}

	res, err := linear.FitLogistic(design, ys, penalty, cfg)
	if err != nil {
		m.logger.Error("Fit failed", err,
			log.OperationKey, log.OperationFit,
			log.DegreeKey, m.degree,
		)
		return err
	}

	m.scaler = scaler
	m.poly = poly
	m.intercept = res.Coef[0]
	m.coef = append([]float64(nil), res.Coef[1:]...)
	m.deviance = res.Deviance
	m.nIter = res.Iterations
	m.converged = res.Converged
	m.state.SetDimensions(1, n)
	m.state.SetFitted()

	m.logger.Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, modelName,
		log.DegreeKey, m.degree,
		log.SamplesKey, n,
		log.IterationKey, res.Iterations,
		log.LossKey, res.Deviance,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// DecisionFunction returns the linear predictor (log-odds) for each row of X.
func (m *PolynomialGLM) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	if err := m.state.RequireFitted(modelName, "DecisionFunction"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError("PolynomialGLM.DecisionFunction", 1, c, 1)
	}
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, parallel.DefaultThreshold, func(start, end int) {
		powers := make([]float64, m.degree)
		for i := start; i < end; i++ {
			m.poly.Expand(m.scaler.TransformValue(X.At(i, 0)), powers)
			eta := m.intercept
			for j, b := range m.coef {
				eta += b * powers[j]
			}
			out[i] = eta
		}
	})
	return mat.NewVecDense(r, out), nil
}

// PredictProba returns an n×2 matrix of [P(y=0), P(y=1)].
func (m *PolynomialGLM) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	eta, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r := eta.Len()
	proba := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		p := errors.Sigmoid(eta.AtVec(i))
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict returns 0/1 labels thresholded at P(y=1) = 0.5.
func (m *PolynomialGLM) Predict(X mat.Matrix) (mat.Matrix, error) {
	eta, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r := eta.Len()
	labels := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		if eta.AtVec(i) > 0 {
			labels.Set(i, 0, 1)
		}
	}
	return labels, nil
}

// Name implements model.ProbabilisticClassifier.
func (m *PolynomialGLM) Name() string {
	return fmt.Sprintf("glm(degree=%d)", m.degree)
}

// Degree returns the configured polynomial degree.
func (m *PolynomialGLM) Degree() int {
	return m.degree
}

// Coefficients returns the intercept and the coefficients of z, z², ... on
// the standardized scale.
func (m *PolynomialGLM) Coefficients() (intercept float64, coef []float64) {
	return m.intercept, append([]float64(nil), m.coef...)
}

// Deviance returns the residual deviance of the fit.
func (m *PolynomialGLM) Deviance() float64 {
	return m.deviance
}

// NIter returns the number of IRLS iterations used and whether they converged.
func (m *PolynomialGLM) NIter() (int, bool) {
	return m.nIter, m.converged
}

// GetParams returns the hyperparameters.
func (m *PolynomialGLM) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"degree":   m.degree,
		"max_iter": m.maxIter,
		"tol":      m.tol,
		"ridge":    m.ridge,
	}
}

// ExportWeights implements model.WeightExporter.
func (m *PolynomialGLM) ExportWeights() (*model.ModelWeights, error) {
	if err := m.state.RequireFitted(modelName, "ExportWeights"); err != nil {
		return nil, err
	}
	return &model.ModelWeights{
		ModelType:       modelName,
		Version:         model.WeightsVersion,
		Coefficients:    append([]float64(nil), m.coef...),
		Intercept:       m.intercept,
		Features:        m.poly.FeatureNames(),
		Hyperparameters: m.GetParams(),
		Metadata: map[string]interface{}{
			"x_mean":     m.scaler.Mean[0],
			"x_scale":    m.scaler.Scale[0],
			"deviance":   m.deviance,
			"iterations": m.nIter,
			"converged":  m.converged,
		},
		State: m.state.GetState(),
	}, nil
}
