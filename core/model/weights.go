package model

import (
	"github.com/YuminosukeSato/occusim/pkg/errors"
)

// WeightsVersion は ModelWeights の形式バージョン
const WeightsVersion = "1"

// ModelWeights は学習済みモデルの係数をレポートへ書き出すための構造体
type ModelWeights struct {
	// ModelType はモデルの種類（PolynomialGLM, PenalizedSplineGAM 等）
	ModelType string `json:"model_type"`

	// Version は形式バージョン（互換性チェック用）
	Version string `json:"version"`

	// Coefficients は切片を除く係数（GLM は多項式項、GAM は B-spline 基底）
	Coefficients []float64 `json:"coefficients"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// Features は各係数に対応する項の名前
	Features []string `json:"features,omitempty"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は標準化の平均・標準偏差やノット位置など
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// State は書き出し時点の StateManager のスナップショット（学習済みフラグ、特徴量数、サンプル数）
	State ModelState `json:"state"`
}

// Validate は ModelWeights の妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if mw.Version == "" {
		return errors.NewValidationError("version", "is required", mw.Version)
	}
	if !mw.State.Fitted && len(mw.Coefficients) > 0 {
		return errors.NewValidationError("coefficients", "unfitted model should not have coefficients", len(mw.Coefficients))
	}
	if mw.State.Fitted && len(mw.Coefficients) == 0 {
		return errors.NewValidationError("coefficients", "fitted model must have coefficients", 0)
	}
	if len(mw.Features) > 0 && len(mw.Features) != len(mw.Coefficients) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.Coefficients), len(mw.Features), 1)
	}
	return nil
}
