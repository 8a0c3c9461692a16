// Package gam fits a penalized-spline logistic GAM (a P-spline): the
// log-odds are a cubic B-spline in the covariate whose coefficients carry a
// difference penalty. The smoothing parameter is chosen so that the fit
// has a requested number of effective degrees of freedom.
package gam

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/core/model"
	"github.com/YuminosukeSato/occusim/core/parallel"
	"github.com/YuminosukeSato/occusim/linear"
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
	"github.com/YuminosukeSato/occusim/preprocessing"
)

const (
	modelName    = "PenalizedSplineGAM"
	splineDegree = 3

	// Bounds of the log10 smoothing-parameter search.
	minLogLambda = -8.0
	maxLogLambda = 8.0

	searchSteps  = 40
	edfTolerance = 1e-3
)

// PenalizedSplineGAM is a logistic P-spline. Without an explicit lambda, the
// smoothing parameter is found by bisection on log10 λ so that the effective
// degrees of freedom equal df + 1 (df excludes the intercept).
type PenalizedSplineGAM struct {
	state *model.StateManager

	// Hyperparameters
	df           float64
	numBasis     int
	penaltyOrder int
	lambda       float64 // < 0 means search
	maxIter      int
	tol          float64

	// Fitted parameters
	basis     *preprocessing.BSplineBasis
	coef      []float64
	fitLambda float64
	edf       float64
	deviance  float64
	nIter     int
	converged bool

	logger log.Logger
}

// Option configures a PenalizedSplineGAM.
type Option func(*PenalizedSplineGAM)

// DefaultDF is the target df used when neither WithDF nor WithLambda is given.
const DefaultDF = 4.0

// New creates a PenalizedSplineGAM. Defaults: df 4, 20 cubic basis
// functions, second-order difference penalty, λ chosen from df.
func New(opts ...Option) *PenalizedSplineGAM {
	m := &PenalizedSplineGAM{
		state:        model.NewStateManager(),
		df:           DefaultDF,
		numBasis:     20,
		penaltyOrder: 2,
		lambda:       -1,
		maxIter:      100,
		tol:          1e-8,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.GetLoggerWithName("gam")
	}
	return m
}

// WithDF sets the target smoothing degrees of freedom, excluding the intercept.
func WithDF(df float64) Option {
	return func(m *PenalizedSplineGAM) {
		m.df = df
	}
}

// WithNumBasis sets the number of B-spline basis functions. It must exceed df+1.
func WithNumBasis(k int) Option {
	return func(m *PenalizedSplineGAM) {
		m.numBasis = k
	}
}

// WithPenaltyOrder sets the order of the difference penalty.
func WithPenaltyOrder(order int) Option {
	return func(m *PenalizedSplineGAM) {
		m.penaltyOrder = order
	}
}

// WithLambda fixes the smoothing parameter and skips the df search.
func WithLambda(lambda float64) Option {
	return func(m *PenalizedSplineGAM) {
		m.lambda = lambda
	}
}

// WithMaxIter sets the maximum number of IRLS iterations per fit.
func WithMaxIter(n int) Option {
	return func(m *PenalizedSplineGAM) {
		m.maxIter = n
	}
}

// WithTol sets the IRLS convergence tolerance.
func WithTol(tol float64) Option {
	return func(m *PenalizedSplineGAM) {
		m.tol = tol
	}
}

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option {
	return func(m *PenalizedSplineGAM) {
		m.logger = l
	}
}

func (m *PenalizedSplineGAM) validate() error {
	if !(m.df > 0) {
		return errors.NewValidationError("df", "must be positive", m.df)
	}
	if m.numBasis <= splineDegree {
		return errors.NewValidationError("num_basis", fmt.Sprintf("must exceed spline degree %d", splineDegree), m.numBasis)
	}
	if float64(m.numBasis) <= m.df+1 {
		return errors.NewValidationError("num_basis", fmt.Sprintf("must exceed df+1 = %g", m.df+1), m.numBasis)
	}
	if m.penaltyOrder < 1 || m.penaltyOrder >= m.numBasis {
		return errors.NewValidationError("penalty_order", fmt.Sprintf("must be in [1, %d)", m.numBasis), m.penaltyOrder)
	}
	if m.lambda >= 0 && math.IsInf(m.lambda, 0) {
		return errors.NewValidationError("lambda", "must be finite", m.lambda)
	}
	return nil
}

// Fit trains the model on X (n×1) and y (n×1, 0/1). The basis spans the
// observed range of x.
func (m *PenalizedSplineGAM) Fit(X, y mat.Matrix) error {
	const op = "PenalizedSplineGAM.Fit"
	if err := m.validate(); err != nil {
		return err
	}
	n, err := model.ValidateFitInput(op, X, y, 1)
	if err != nil {
		return err
	}
	start := time.Now()
	m.state.Reset()

	xs := mat.Col(nil, 0, X)
	ys := mat.Col(nil, 0, y)
	lo, hi := floats.Min(xs), floats.Max(xs)
	if !(lo < hi) {
		return errors.NewValueError(op, "x must take at least two distinct values")
	}

	basis, err := preprocessing.NewBSplineBasis(m.numBasis, splineDegree, lo, hi)
	if err != nil {
		return err
	}
	B, err := basis.Transform(X)
	if err != nil {
		return err
	}
	P, err := preprocessing.DifferencePenalty(m.numBasis, m.penaltyOrder)
	if err != nil {
		return err
	}

	var res *linear.Result
	var lambda, edf float64
	if m.lambda >= 0 {
		lambda = m.lambda
		res, edf, err = m.fitAt(B, ys, P, lambda, false)
	} else {
		lambda, res, edf, err = m.searchLambda(B, ys, P)
	}
	if err != nil {
		m.logger.Error("Fit failed", err,
			log.OperationKey, log.OperationFit,
			log.DFKey, m.df,
		)
		return err
	}

	m.basis = basis
	m.coef = res.Coef
	m.fitLambda = lambda
	m.edf = edf
	m.deviance = res.Deviance
	m.nIter = res.Iterations
	m.converged = res.Converged
	m.state.SetDimensions(1, n)
	m.state.SetFitted()

	m.logger.Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, modelName,
		log.DFKey, m.df,
		"edf", edf-1,
		log.RegularizationKey, lambda,
		log.SamplesKey, n,
		log.LossKey, res.Deviance,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fitAt runs penalized IRLS at a fixed λ and returns the fit with its
// effective degrees of freedom (intercept included).
func (m *PenalizedSplineGAM) fitAt(B *mat.Dense, ys []float64, P *mat.SymDense, lambda float64, quiet bool) (*linear.Result, float64, error) {
	cfg, err := linear.NewIRLSConfig(
		linear.WithMaxIter(m.maxIter),
		linear.WithTol(m.tol),
		linear.WithAlgorithm("gam P-IRLS"),
		linear.WithQuiet(quiet),
		linear.WithLogger(m.logger),
	)
	if err != nil {
		return nil, 0, err
	}
	S := mat.NewSymDense(m.numBasis, nil)
	S.ScaleSym(lambda, P)

	res, err := linear.FitLogistic(B, ys, S, cfg)
	if err != nil {
		return nil, 0, err
	}
	edf, err := linear.EffectiveDF(B, res.Weights, S)
	if err != nil {
		return nil, 0, err
	}
	return res, edf, nil
}

// searchLambda bisects log10 λ until the EDF matches df+1. EDF decreases
// monotonically in λ, so targets outside the attainable range end at the
// nearest bound.
func (m *PenalizedSplineGAM) searchLambda(B *mat.Dense, ys []float64, P *mat.SymDense) (float64, *linear.Result, float64, error) {
	target := m.df + 1
	loLog, hiLog := minLogLambda, maxLogLambda
	best := maxLogLambda

	for step := 0; step < searchSteps; step++ {
		mid := (loLog + hiLog) / 2
		_, edf, err := m.fitAt(B, ys, P, math.Pow(10, mid), true)
		if err != nil {
			// A near-unpenalized fit can leave the weighted system singular.
			loLog = mid
			continue
		}
		best = mid
		m.logger.Debug("Smoothing parameter search",
			log.IterationKey, step,
			log.RegularizationKey, math.Pow(10, mid),
			"edf", edf,
		)
		if math.Abs(edf-target) < edfTolerance {
			break
		}
		if edf > target {
			loLog = mid
		} else {
			hiLog = mid
		}
	}
	return m.finalFit(B, ys, P, best)
}

// finalFit refits at the chosen λ with convergence warnings enabled.
func (m *PenalizedSplineGAM) finalFit(B *mat.Dense, ys []float64, P *mat.SymDense, logLambda float64) (float64, *linear.Result, float64, error) {
	lambda := math.Pow(10, logLambda)
	res, edf, err := m.fitAt(B, ys, P, lambda, false)
	if err != nil {
		return 0, nil, 0, err
	}
	return lambda, res, edf, nil
}

// DecisionFunction returns the log-odds for each row of X. Values outside the
// training range are evaluated at the nearest boundary.
func (m *PenalizedSplineGAM) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	if err := m.state.RequireFitted(modelName, "DecisionFunction"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError("PenalizedSplineGAM.DecisionFunction", 1, c, 1)
	}
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, parallel.DefaultThreshold, func(start, end int) {
		row := make([]float64, m.numBasis)
		for i := start; i < end; i++ {
			m.basis.Evaluate(X.At(i, 0), row)
			out[i] = floats.Dot(row, m.coef)
		}
	})
	return mat.NewVecDense(r, out), nil
}

// PredictProba returns an n×2 matrix of [P(y=0), P(y=1)].
func (m *PenalizedSplineGAM) PredictProba(X mat.Matrix) (mat.Matrix, error) {
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
func (m *PenalizedSplineGAM) Predict(X mat.Matrix) (mat.Matrix, error) {
	eta, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	labels := mat.NewDense(eta.Len(), 1, nil)
	for i := 0; i < eta.Len(); i++ {
		if eta.AtVec(i) > 0 {
			labels.Set(i, 0, 1)
		}
	}
	return labels, nil
}

// Name implements model.ProbabilisticClassifier.
func (m *PenalizedSplineGAM) Name() string {
	if m.lambda >= 0 {
		return fmt.Sprintf("gam(lambda=%g)", m.lambda)
	}
	return fmt.Sprintf("gam(df=%g)", m.df)
}

// EffectiveDF returns the achieved effective degrees of freedom, excluding
// the intercept, so it is comparable with WithDF.
func (m *PenalizedSplineGAM) EffectiveDF() float64 {
	return m.edf - 1
}

// Lambda returns the smoothing parameter used for the final fit.
func (m *PenalizedSplineGAM) Lambda() float64 {
	return m.fitLambda
}

// Deviance returns the residual deviance of the fit.
func (m *PenalizedSplineGAM) Deviance() float64 {
	return m.deviance
}

// GetParams returns the hyperparameters.
func (m *PenalizedSplineGAM) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"df":            m.df,
		"num_basis":     m.numBasis,
		"penalty_order": m.penaltyOrder,
		"max_iter":      m.maxIter,
		"tol":           m.tol,
	}
	if m.lambda >= 0 {
		params["lambda"] = m.lambda
	}
	return params
}

// ExportWeights implements model.WeightExporter. The basis functions sum to
// one, so the intercept is absorbed into the coefficients and reported as 0.
func (m *PenalizedSplineGAM) ExportWeights() (*model.ModelWeights, error) {
	if err := m.state.RequireFitted(modelName, "ExportWeights"); err != nil {
		return nil, err
	}
	features := make([]string, m.numBasis)
	for j := range features {
		features[j] = fmt.Sprintf("B%d", j)
	}
	return &model.ModelWeights{
		ModelType:       modelName,
		Version:         model.WeightsVersion,
		Coefficients:    append([]float64(nil), m.coef...),
		Features:        features,
		Hyperparameters: m.GetParams(),
		Metadata: map[string]interface{}{
			"knots":      m.basis.Knots(),
			"lambda":     m.fitLambda,
			"edf":        m.edf - 1,
			"deviance":   m.deviance,
			"iterations": m.nIter,
			"converged":  m.converged,
		},
		State: m.state.GetState(),
	}, nil
}
