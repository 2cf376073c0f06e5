package model

import (
	"encoding/json"
	"time"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// ModelCard は保存されたモデルの人間向けメタデータ（JSON）
// gobアーティファクトの隣に書き出され、選ばれたハイパーパラメータと
// 交差検証スコアを記録する。
type ModelCard struct {
	// ModelID は候補モデル番号（1..4）
	ModelID int `json:"model_id"`

	// Description は候補モデルの説明（"PCA+LogReg" 等）
	Description string `json:"description"`

	// RunID は学習を行った実行のID
	RunID string `json:"run_id"`

	// Hyperparameters は選ばれたグリッド点（"step__param" 形式のキー）
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metric と CVScore は選択に用いた指標とその平均値
	Metric  string  `json:"metric"`
	CVScore float64 `json:"cv_score"`

	// NFeatures は入力特徴量ベクトルの幅
	NFeatures int `json:"n_features"`

	// FeatureNames は入力ベクトルの各列の名前（"state=CA" 等）
	FeatureNames []string `json:"feature_names,omitempty"`

	Classes   []float64 `json:"classes"`
	TrainedAt time.Time `json:"trained_at"`
}

// ToJSON はModelCardをJSON形式にシリアライズ
func (c *ModelCard) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// FromJSON はJSON形式からModelCardをデシリアライズ
func (c *ModelCard) FromJSON(data []byte) error {
	return json.Unmarshal(data, c)
}

// Validate はModelCardの妥当性を検証
func (c *ModelCard) Validate() error {
	if c.ModelID <= 0 {
		return scierrors.NewValidationError("model_id", "must be positive", c.ModelID)
	}
	if c.Description == "" {
		return scierrors.NewValidationError("description", "is required", c.Description)
	}
	if c.NFeatures <= 0 {
		return scierrors.NewValidationError("n_features", "must be positive", c.NFeatures)
	}
	return nil
}
