package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/core/model"
	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/sklearn/pipeline"
)

// ModelPath is the artifact path of candidate id.
func (s *Store) ModelPath(id int) string {
	return filepath.Join(s.Root, "models", fmt.Sprintf("model%d", id))
}

// SaveModel writes p as models/model<id>, replacing any earlier artifact,
// and the card next to it when card is non-nil.
func (s *Store) SaveModel(p *pipeline.Pipeline, id int, card *model.ModelCard) error {
	if !p.IsFitted() {
		return scierrors.NewNotFittedError("Pipeline", "SaveModel")
	}
	path := s.ModelPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return scierrors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	if err := model.SaveModel(p, path); err != nil {
		return err
	}
	if card != nil {
		if err := card.Validate(); err != nil {
			return err
		}
		data, err := card.ToJSON()
		if err != nil {
			return scierrors.Wrap(err, "encode model card")
		}
		if err := os.WriteFile(path+".json", data, 0o644); err != nil {
			return scierrors.Wrapf(err, "write %s.json", path)
		}
	}
	s.logger.Info("Model saved",
		log.OperationKey, log.OperationPersist,
		log.ModelIDKey, id,
		log.PathKey, path,
	)
	return nil
}

// LoadModel reads models/model<id>.
func (s *Store) LoadModel(id int) (*pipeline.Pipeline, error) {
	var p pipeline.Pipeline
	if err := model.LoadModel(&p, s.ModelPath(id)); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadCard reads the card of model id.
func (s *Store) LoadCard(id int) (*model.ModelCard, error) {
	data, err := os.ReadFile(s.ModelPath(id) + ".json")
	if err != nil {
		return nil, scierrors.Wrapf(err, "read card of model%d", id)
	}
	var c model.ModelCard
	if err := c.FromJSON(data); err != nil {
		return nil, scierrors.Wrap(err, "decode model card")
	}
	return &c, nil
}

// Predictor is the part of a fitted model ExportPredictions needs.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ExportPredictions writes output/model<id>_predictions.csv with columns
// label,prediction and returns its path.
func (s *Store) ExportPredictions(m Predictor, id int, data *dataset.Labeled) (string, error) {
	pred, err := m.Predict(data.Features)
	if err != nil {
		return "", scierrors.Wrap(err, "export predictions: predict")
	}
	path := s.OutputPath(fmt.Sprintf("model%d_predictions.csv", id))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", scierrors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return "", scierrors.Wrapf(err, "create %s", path)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"label", "prediction"}); err != nil {
		f.Close()
		return "", err
	}
	for i, l := range data.Label {
		rec := []string{
			strconv.FormatFloat(l, 'f', -1, 64),
			strconv.FormatFloat(pred.At(i, 0), 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return "", scierrors.Wrapf(err, "write %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", scierrors.Wrapf(err, "write %s", path)
	}
	return path, f.Close()
}
