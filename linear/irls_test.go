package linear

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

func logisticData(n int, b0, b1 float64, seed uint64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := -3 + 6*rng.Float64()
		X.Set(i, 0, 1)
		X.Set(i, 1, x)
		if rng.Float64() < errors.Sigmoid(b0+b1*x) {
			y[i] = 1
		}
	}
	return X, y
}

func TestFitLogisticRecoversCoefficients(t *testing.T) {
	X, y := logisticData(20000, -0.5, 1.2, 42)
	cfg, err := NewIRLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	res, err := FitLogistic(X, y, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Error("expected convergence on well-posed data")
	}
	if math.Abs(res.Coef[0]-(-0.5)) > 0.1 || math.Abs(res.Coef[1]-1.2) > 0.1 {
		t.Errorf("coefficients = %v, want ≈ [-0.5 1.2]", res.Coef)
	}
	if res.Iterations > 15 {
		t.Errorf("Newton iterations = %d, expected fast convergence", res.Iterations)
	}
	for i, m := range res.Mu {
		if m < 0 || m > 1 {
			t.Fatalf("mu[%d] = %v outside [0,1]", i, m)
		}
	}
	if math.Abs(res.Deviance-BinomialDeviance(y, res.Mu)) > 1e-9 {
		t.Error("Deviance does not match final fitted values")
	}
}

func TestFitLogisticScoreEquations(t *testing.T) {
	X, y := logisticData(500, 0.3, -0.8, 7)
	cfg, _ := NewIRLSConfig(WithTol(1e-12))
	res, err := FitLogistic(X, y, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	// At the MLE, Xᵀ(y − μ) = 0.
	for j := 0; j < 2; j++ {
		g := 0.0
		for i := range y {
			g += X.At(i, j) * (y[i] - res.Mu[i])
		}
		if math.Abs(g) > 1e-6 {
			t.Errorf("score component %d = %v, want 0", j, g)
		}
	}
}

func TestFitLogisticIsNewtonFixedPoint(t *testing.T) {
	X, y := logisticData(500, 0.3, -0.8, 7)
	cfg, _ := NewIRLSConfig(WithTol(1e-12))
	res, err := FitLogistic(X, y, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Fatal("expected convergence")
	}
	// One more Newton step from the returned coefficients must not move them.
	z := make([]float64, len(y))
	for i := range y {
		z[i] = res.Eta[i] + (y[i]-res.Mu[i])/res.Weights[i]
	}
	next, err := SolvePWLS(X, res.Weights, z, nil)
	if err != nil {
		t.Fatal(err)
	}
	for j := range next {
		if d := math.Abs(next[j] - res.Coef[j]); d > 1e-10 {
			t.Errorf("coef %d moved by %g after an extra Newton step", j, d)
		}
	}
}

func TestFitLogisticPenaltyShrinks(t *testing.T) {
	X, y := logisticData(300, 0, 2, 3)
	cfg, _ := NewIRLSConfig()
	free, err := FitLogistic(X, y, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	S := mat.NewSymDense(2, []float64{0, 0, 0, 50})
	pen, err := FitLogistic(X, y, S, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pen.Coef[1]) >= math.Abs(free.Coef[1]) {
		t.Errorf("penalized slope %v not smaller than free slope %v", pen.Coef[1], free.Coef[1])
	}
	if pen.PenalizedDeviance < pen.Deviance {
		t.Error("penalized deviance must include the penalty term")
	}
}

func TestFitLogisticSeparableWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	n := 40
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i) - float64(n)/2 + 0.5
		X.Set(i, 0, 1)
		X.Set(i, 1, x)
		if x > 0 {
			y[i] = 1
		}
	}
	cfg, _ := NewIRLSConfig(WithMaxIter(5), WithAlgorithm("test IRLS"))
	res, err := FitLogistic(X, y, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Converged {
		t.Fatal("separable data should not converge in 5 iterations")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
	var cw *errors.ConvergenceWarning
	if !errors.As(warnings[0], &cw) || cw.Algorithm != "test IRLS" || cw.Iterations != 5 {
		t.Errorf("unexpected warning: %v", warnings[0])
	}
}

func TestFitLogisticSingular(t *testing.T) {
	// An all-zero column leaves XᵀWX with a zero pivot.
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 0,
		1, 0,
		1, 0,
	})
	cfg, _ := NewIRLSConfig()
	_, err := FitLogistic(X, []float64{0, 1, 0, 1}, nil, cfg)
	if !errors.Is(err, errors.ErrSingularMatrix) {
		t.Fatalf("expected ErrSingularMatrix, got %v", err)
	}
	var me *errors.ModelError
	if !errors.As(err, &me) {
		t.Errorf("expected ModelError, got %T", err)
	}
}

func TestSolvePWLSOrdinaryLeastSquares(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3})
	z := []float64{1, 3, 5, 7}
	w := []float64{1, 1, 1, 1}
	beta, err := SolvePWLS(X, w, z, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(beta[0]-1) > 1e-12 || math.Abs(beta[1]-2) > 1e-12 {
		t.Errorf("beta = %v, want [1 2]", beta)
	}
}

func TestEffectiveDF(t *testing.T) {
	X, _ := logisticData(200, 0, 1, 1)
	w := make([]float64, 200)
	for i := range w {
		w[i] = 0.25
	}
	edf, err := EffectiveDF(X, w, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(edf-2) > 1e-9 {
		t.Errorf("unpenalized EDF = %v, want 2", edf)
	}

	S := mat.NewSymDense(2, []float64{0, 0, 0, 1e8})
	edf, err = EffectiveDF(X, w, S)
	if err != nil {
		t.Fatal(err)
	}
	if edf < 0.999 || edf > 1.01 {
		t.Errorf("heavily penalized EDF = %v, want ≈ 1", edf)
	}
}

func TestBinomialDeviance(t *testing.T) {
	got := BinomialDeviance([]float64{1, 0}, []float64{0.5, 0.5})
	want := 4 * math.Log(2)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("BinomialDeviance = %v, want %v", got, want)
	}
	if d := BinomialDeviance([]float64{1}, []float64{0}); math.IsInf(d, 0) {
		t.Error("deviance should be finite for saturated predictions")
	}
}

func TestNewIRLSConfigValidation(t *testing.T) {
	if _, err := NewIRLSConfig(WithMaxIter(0)); err == nil {
		t.Error("max_iter=0 should be rejected")
	}
	if _, err := NewIRLSConfig(WithTol(0)); err == nil {
		t.Error("tol=0 should be rejected")
	}
}
