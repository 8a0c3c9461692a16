// Package metrics scores probability predictions against observed labels
// (log loss, Brier score, AUC, accuracy) and fitted curves against the true
// occurrence curve (MSE, RMSE, MAE, max abs error).
package metrics

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/occusim/pkg/errors"
)

// logLossEps は log(0) を避けるための確率のクリップ幅
const logLossEps = 1e-15

// checkPair は 2 つのベクトルが空でなく同じ長さであることを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.IsEmpty() || yPred.IsEmpty() {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// checkBinary は yTrue が 0/1 のみであることを検証する
func checkBinary(op string, yTrue *mat.VecDense) error {
	for i := 0; i < yTrue.Len(); i++ {
		if v := yTrue.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "yTrue must contain only 0 and 1")
		}
	}
	return nil
}

// BinaryLogLoss は二値交差エントロピー（平均）を計算する。
// yPred は P(y=1) で、[eps, 1-eps] にクリップされる。
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEps, 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// BrierScore は確率予測の平均二乗誤差 (1/n)Σ(p - y)² を計算する
func BrierScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BrierScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BrierScore", yTrue); err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := yPred.AtVec(i)
		if p < 0 || p > 1 {
			return 0, errors.NewValueError("BrierScore", "yPred must be probabilities in [0, 1]")
		}
		d := p - yTrue.AtVec(i)
		sum += d * d
	}
	return sum / float64(n), nil
}

// AUC は ROC 曲線下面積を計算する。同順位のスコアは 0.5 として数える。
// yTrue が片方のクラスしか含まない場合は UndefinedMetricWarning を出して 0.5 を返す。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	scores := make([]float64, n)
	classes := make([]bool, n)
	nPos := 0
	for i := 0; i < n; i++ {
		scores[i] = yPred.AtVec(i)
		classes[i] = yTrue.AtVec(i) == 1
		if classes[i] {
			nPos++
		}
	}
	if nPos == 0 || nPos == n {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// AUCMatrix は行列の第 1 列同士で AUC を計算する
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	yt, err := firstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	yp, err := firstColumn("AUCMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return AUC(yt, yp)
}

func firstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if d, ok := m.(*mat.Dense); ok && d.IsEmpty() {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}

// Accuracy は正解率を計算する（ラベルの完全一致の割合）
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は 1 - Accuracy を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ThresholdAccuracy は P(y=1) を 0.5 で二値化したときの正解率を計算する
func ThresholdAccuracy(yTrue, proba *mat.VecDense) (float64, error) {
	n, err := checkPair("ThresholdAccuracy", yTrue, proba)
	if err != nil {
		return 0, err
	}
	labels := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if proba.AtVec(i) > 0.5 {
			labels.SetVec(i, 1)
		}
	}
	return Accuracy(yTrue, labels)
}
