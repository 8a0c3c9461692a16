package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/core/parallel"
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
)

const (
	// minWeight keeps working weights away from zero when μ saturates.
	minWeight = 1e-10

	// maxHalvings bounds step halving when the penalized deviance increases.
	maxHalvings = 20

	parallelThreshold = 1000
)

// Result is the outcome of FitLogistic.
type Result struct {
	// Coef holds β, intercept first.
	Coef []float64

	// Eta and Mu are the final linear predictor and fitted probabilities.
	Eta []float64
	Mu  []float64

	// Weights are the final working weights μ(1−μ).
	Weights []float64

	Deviance          float64
	PenalizedDeviance float64
	Iterations        int
	Converged         bool
}

// FitLogistic fits a logistic regression with design X (n×p), response y ∈ {0,1}^n and penalty S (p×p, may be nil) by IRLS.
//
// Start values follow the usual GLM convention μ₀ = (y + 0.5)/2. A
// ConvergenceWarning is emitted through errors.Warn when MaxIter is reached.
// A non positive-definite system yields a ModelError wrapping
// errors.ErrSingularMatrix.
func FitLogistic(X *mat.Dense, y []float64, S *mat.SymDense, cfg IRLSConfig) (*Result, error) {
	n, p := X.Dims()
	if len(y) != n {
		return nil, errors.NewDimensionError(cfg.Algorithm, n, len(y), 0)
	}
	if S != nil && S.SymmetricDim() != p {
		return nil, errors.NewDimensionError(cfg.Algorithm, p, S.SymmetricDim(), 1)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("linear")
	}

	eta := make([]float64, n)
	mu := make([]float64, n)
	for i, yi := range y {
		mu[i] = (yi + 0.5) / 2
		eta[i] = errors.Logit(mu[i])
	}

	res := &Result{Coef: make([]float64, p)}
	w := make([]float64, n)
	z := make([]float64, n)
	prevPenDev := math.Inf(1)
	var beta []float64

	for iter := 1; iter <= cfg.MaxIter; iter++ {
		for i := range y {
			w[i] = math.Max(mu[i]*(1-mu[i]), minWeight)
			z[i] = eta[i] + (y[i]-mu[i])/w[i]
		}

		next, err := SolvePWLS(X, w, z, S)
		if err != nil {
			return nil, errors.NewModelError(cfg.Algorithm, "singular weighted system", errors.ErrSingularMatrix)
		}
		if err := errors.CheckNumericalStability(cfg.Algorithm, next, iter); err != nil {
			return nil, err
		}

		penDev := evaluate(X, y, next, S, eta, mu)
		// Rises within Tol of the previous deviance are rounding, not a worse step.
		slack := cfg.Tol * (math.Abs(prevPenDev) + 0.1)
		for h := 0; beta != nil && penDev > prevPenDev+slack && h < maxHalvings; h++ {
			for j := range next {
				next[j] = (next[j] + beta[j]) / 2
			}
			penDev = evaluate(X, y, next, S, eta, mu)
		}
		beta = next
		res.Iterations = iter

		logger.Debug("IRLS step",
			log.IterationKey, iter,
			log.LossKey, penDev,
		)

		if math.Abs(penDev-prevPenDev)/(math.Abs(penDev)+0.1) < cfg.Tol {
			res.Converged = true
			prevPenDev = penDev
			break
		}
		prevPenDev = penDev
	}

	if !res.Converged && !cfg.Quiet {
		errors.Warn(errors.NewConvergenceWarning(cfg.Algorithm, res.Iterations,
			"penalized deviance still changing; the data may be separable"))
	}

	for i := range y {
		w[i] = math.Max(mu[i]*(1-mu[i]), minWeight)
	}
	res.Coef = beta
	res.Eta = eta
	res.Mu = mu
	res.Weights = w
	res.PenalizedDeviance = prevPenDev
	res.Deviance = BinomialDeviance(y, mu)
	return res, nil
}

// evaluate recomputes eta and mu for beta in place and returns the penalized
// deviance.
func evaluate(X *mat.Dense, y, beta []float64, S *mat.SymDense, eta, mu []float64) float64 {
	n, p := X.Dims()
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := X.RawRowView(i)
			e := 0.0
			for j := 0; j < p; j++ {
				e += row[j] * beta[j]
			}
			eta[i] = e
			mu[i] = errors.Sigmoid(e)
		}
	})
	return BinomialDeviance(y, mu) + quadForm(S, beta)
}

func quadForm(S *mat.SymDense, beta []float64) float64 {
	if S == nil {
		return 0
	}
	b := mat.NewVecDense(len(beta), beta)
	return mat.Inner(b, S, b)
}

// SolvePWLS solves (XᵀWX + S) β = XᵀWz. S may be nil.
func SolvePWLS(X *mat.Dense, w, z []float64, S *mat.SymDense) ([]float64, error) {
	A, err := WeightedGram(X, w, S)
	if err != nil {
		return nil, err
	}
	n, p := X.Dims()

	wz := make([]float64, n)
	for i := range wz {
		wz[i] = w[i] * z[i]
	}
	var rhs mat.VecDense
	rhs.MulVec(X.T(), mat.NewVecDense(n, wz))

	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		return nil, errors.ErrSingularMatrix
	}
	beta := mat.NewVecDense(p, nil)
	if err := ignoreCondition(chol.SolveVecTo(beta, &rhs)); err != nil {
		return nil, errors.Wrap(errors.ErrSingularMatrix, err.Error())
	}
	return beta.RawVector().Data, nil
}

// ignoreCondition drops mat.Condition errors. The solution is still computed
// for ill-conditioned systems, and IRLS checks the result for NaN/Inf.
func ignoreCondition(err error) error {
	var cond mat.Condition
	if errors.As(err, &cond) {
		return nil
	}
	return err
}

// WeightedGram returns XᵀWX + S. S may be nil.
func WeightedGram(X *mat.Dense, w []float64, S *mat.SymDense) (*mat.SymDense, error) {
	n, p := X.Dims()
	if len(w) != n {
		return nil, errors.NewDimensionError("linear.WeightedGram", n, len(w), 0)
	}
	xw := mat.NewDense(n, p, nil)
	xw.Apply(func(i, j int, v float64) float64 {
		return v * math.Sqrt(w[i])
	}, X)

	A := mat.NewSymDense(p, nil)
	A.SymOuterK(1, xw.T())
	if S != nil {
		A.AddSym(A, S)
	}
	return A, nil
}

// EffectiveDF returns tr((XᵀWX + S)⁻¹ XᵀWX), the effective number of
// parameters of a penalized fit.
func EffectiveDF(X *mat.Dense, w []float64, S *mat.SymDense) (float64, error) {
	G, err := WeightedGram(X, w, nil)
	if err != nil {
		return 0, err
	}
	A, err := WeightedGram(X, w, S)
	if err != nil {
		return 0, err
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		return 0, errors.NewModelError("linear.EffectiveDF", "singular penalized system", errors.ErrSingularMatrix)
	}
	var H mat.Dense
	if err := ignoreCondition(chol.SolveTo(&H, G)); err != nil {
		return 0, errors.NewModelError("linear.EffectiveDF", "solve failed", err)
	}
	return mat.Trace(&H), nil
}

// BinomialDeviance is −2 Σ [y log μ + (1−y) log(1−μ)] with μ clipped away
// from 0 and 1.
func BinomialDeviance(y, mu []float64) float64 {
	dev := 0.0
	for i, yi := range y {
		dev -= yi*errors.StabilizeLog(mu[i]) + (1-yi)*errors.StabilizeLog(1-mu[i])
	}
	return 2 * dev
}
