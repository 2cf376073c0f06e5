// Package models builds the four candidate pipelines and their search grids.
package models

import (
	"fmt"

	"github.com/YuminosukeSato/severity/decomposition"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/sklearn/ensemble"
	"github.com/YuminosukeSato/severity/sklearn/linear_model"
	"github.com/YuminosukeSato/severity/sklearn/model_selection"
	"github.com/YuminosukeSato/severity/sklearn/multiclass"
	"github.com/YuminosukeSato/severity/sklearn/pipeline"
	"github.com/YuminosukeSato/severity/sklearn/tree"
)

// Candidate is an unfitted pipeline plus the grid it is searched over.
type Candidate struct {
	ID          int
	Description string
	Pipeline    *pipeline.Pipeline
	Grid        []model_selection.ParamMap
}

// OvRBase selects the binary classifier wrapped by model 4.
type OvRBase string

const (
	OvRGBT    OvRBase = "gbt"
	OvRLogReg OvRBase = "logreg"
)

// ParseOvRBase validates a base name.
func ParseOvRBase(s string) (OvRBase, error) {
	switch b := OvRBase(s); b {
	case OvRGBT, OvRLogReg:
		return b, nil
	}
	return "", scierrors.NewInvalidArgumentError("ParseOvRBase", "ovr_base", s)
}

// pcaKs are the PCA sizes searched by every candidate. Values above the
// feature count are clamped by PCA.Fit.
func pcaKs(totalFeatures int) []interface{} {
	return []interface{}{50, 100, totalFeatures}
}

// MakeModel1 is PCA followed by multinomial logistic regression.
func MakeModel1(totalFeatures int) Candidate {
	p := pipeline.MustNew(
		pipeline.Step{Name: "pca", Estimator: decomposition.NewPCA(totalFeatures)},
		pipeline.Step{Name: "logreg", Estimator: linear_model.NewLogisticRegression()},
	)
	grid := model_selection.NewParamGridBuilder().
		AddGrid("pca__k", pcaKs(totalFeatures)...).
		AddGrid("logreg__aggregation_depth", 2, 3, 4).
		AddGrid("logreg__reg_param", 0.0, 0.001, 0.1, 1.0).
		Build()
	return Candidate{ID: 1, Description: "PCA+LogReg", Pipeline: p, Grid: grid}
}

// MakeModel2 is PCA followed by a decision tree.
func MakeModel2(totalFeatures int) Candidate {
	p := pipeline.MustNew(
		pipeline.Step{Name: "pca", Estimator: decomposition.NewPCA(totalFeatures)},
		pipeline.Step{Name: "dtc", Estimator: tree.NewDecisionTreeClassifier()},
	)
	grid := model_selection.NewParamGridBuilder().
		AddGrid("pca__k", pcaKs(totalFeatures)...).
		AddGrid("dtc__max_depth", 5, 10).
		AddGrid("dtc__criterion", "gini", "entropy").
		Build()
	return Candidate{ID: 2, Description: "PCA+DecisionTrees", Pipeline: p, Grid: grid}
}

// MakeModel3 fits PCA but trains the random forest on the raw features.
func MakeModel3(totalFeatures int) Candidate {
	p := pipeline.MustNew(
		pipeline.Step{Name: "pca", Estimator: decomposition.NewPCA(totalFeatures)},
		pipeline.Step{Name: "rfc", Estimator: ensemble.NewRandomForestClassifier(), RawInput: true},
	)
	grid := model_selection.NewParamGridBuilder().
		AddGrid("pca__k", pcaKs(totalFeatures)...).
		AddGrid("rfc__max_depth", 5, 10).
		AddGrid("rfc__n_estimators", 5, 10).
		AddGrid("rfc__criterion", "gini", "entropy").
		Build()
	return Candidate{ID: 3, Description: "PCA+RandomForest", Pipeline: p, Grid: grid}
}

// MakeModel4 is PCA followed by one-vs-rest over base. The GBT base is
// searched over tree depth, the logistic base over regularization.
func MakeModel4(totalFeatures int, base OvRBase) (Candidate, error) {
	b := model_selection.NewParamGridBuilder().AddGrid("pca__k", pcaKs(totalFeatures)...)

	var ovr *multiclass.OneVsRest
	switch base {
	case OvRGBT, "":
		ovr = multiclass.NewOneVsRest(ensemble.NewGBTClassifier())
		b.AddGrid("ovr__max_depth", 3, 5)
	case OvRLogReg:
		ovr = multiclass.NewOneVsRest(linear_model.NewLogisticRegression())
		b.AddGrid("ovr__reg_param", 0.0, 0.1)
	default:
		return Candidate{}, scierrors.NewInvalidArgumentError("MakeModel4", "ovr_base", base)
	}

	p := pipeline.MustNew(
		pipeline.Step{Name: "pca", Estimator: decomposition.NewPCA(totalFeatures)},
		pipeline.Step{Name: "ovr", Estimator: ovr},
	)
	return Candidate{ID: 4, Description: "PCA+LogReg+OvR", Pipeline: p, Grid: b.Build()}, nil
}

// Candidates returns models 1..4 in order.
func Candidates(totalFeatures int, base OvRBase) ([]Candidate, error) {
	if totalFeatures < 1 {
		return nil, scierrors.NewValidationError("total_features", "must be >= 1", totalFeatures)
	}
	m4, err := MakeModel4(totalFeatures, base)
	if err != nil {
		return nil, err
	}
	return []Candidate{
		MakeModel1(totalFeatures),
		MakeModel2(totalFeatures),
		MakeModel3(totalFeatures),
		m4,
	}, nil
}

// ArtifactName is the persisted model name, e.g. "model3".
func (c Candidate) ArtifactName() string {
	return fmt.Sprintf("model%d", c.ID)
}
