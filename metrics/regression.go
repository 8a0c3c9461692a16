package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MSEMatrix は列ベクトル（n×1 行列）に対して MSE を計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}

	return MSE(
		mat.NewVecDense(rTrue, mat.Col(nil, 0, yTrue)),
		mat.NewVecDense(rPred, mat.Col(nil, 0, yPred)),
	)
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MAE = (1/n) * Σ|yTrue - yPred|
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// MaxAbsError は最大絶対誤差 max|yTrue - yPred| を計算する
func MaxAbsError(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("MaxAbsError", yTrue, yPred); err != nil {
		return 0, err
	}
	diff := mat.Col(nil, 0, yTrue)
	floats.Sub(diff, mat.Col(nil, 0, yPred))
	return floats.Norm(diff, math.Inf(1)), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yt := mat.Col(nil, 0, yTrue)
	yMean := stat.Mean(yt, nil)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		d := yt[i] - yMean
		r := yt[i] - yPred.AtVec(i)
		tss += d * d
		rss += r * r
	}

	// 全変動が0の場合（すべての yTrue が同じ値）
	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// CurveErrors は推定曲線と真の曲線の差の要約
type CurveErrors struct {
	MSE         float64 `json:"mse"`
	RMSE        float64 `json:"rmse"`
	MAE         float64 `json:"mae"`
	MaxAbsError float64 `json:"max_abs_error"`
}

// CompareCurves は同じグリッド上で評価した 2 本の曲線の差を計算する
func CompareCurves(truth, estimate []float64) (CurveErrors, error) {
	if len(truth) == 0 || len(estimate) == 0 {
		return CurveErrors{}, errors.NewValueError("CompareCurves", "empty curve")
	}
	if len(truth) != len(estimate) {
		return CurveErrors{}, errors.NewDimensionError("CompareCurves", len(truth), len(estimate), 0)
	}
	yt := mat.NewVecDense(len(truth), truth)
	yp := mat.NewVecDense(len(estimate), estimate)

	var out CurveErrors
	var err error
	if out.MSE, err = MSE(yt, yp); err != nil {
		return CurveErrors{}, err
	}
	out.RMSE = math.Sqrt(out.MSE)
	if out.MAE, err = MAE(yt, yp); err != nil {
		return CurveErrors{}, err
	}
	if out.MaxAbsError, err = MaxAbsError(yt, yp); err != nil {
		return CurveErrors{}, err
	}
	return out, nil
}
