// Package model defines the estimator contracts shared by transformers,
// classifiers and pipelines, plus fitted-state tracking and persistence.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Estimator はハイパーパラメータを持ち、未学習のコピーを作成できるモデル
type Estimator interface {
	// GetParams はモデルのハイパーパラメータを返す
	GetParams() map[string]interface{}

	// SetParams はハイパーパラメータを設定する。未知のキーはエラー
	SetParams(params map[string]interface{}) error

	// Clone は同じハイパーパラメータを持つ未学習のインスタンスを返す
	Clone() Estimator
}

// Fitter は教師あり学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は n×1 のラベル列を返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier combines the supervised contracts for classification models.
type Classifier interface {
	Estimator
	Fitter
	Predictor

	// PredictProba returns an n × len(Classes()) matrix of class probabilities.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted labels seen during fitting.
	Classes() []float64

	IsFitted() bool
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	Estimator

	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)

	IsFitted() bool
}
