package model

import (
	"encoding/gob"
	"io"
	"os"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// インターフェース型のフィールドを持つモデル（パイプライン等）は、具象型を
// 事前に gob.Register しておく必要がある。
//
//	err := model.SaveModel(bestPipeline, "models/model1")
func SaveModel(m interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return scierrors.Wrapf(err, "create model file %s", filename)
	}
	defer file.Close()

	if err := SaveModelToWriter(m, file); err != nil {
		return err
	}
	return scierrors.Wrap(file.Sync(), "sync model file")
}

// LoadModel はファイルからモデルを読み込む。m はポインタであること
func LoadModel(m interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return scierrors.Wrapf(err, "open model file %s", filename)
	}
	defer file.Close()
	return LoadModelFromReader(m, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return scierrors.Wrap(err, "encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return scierrors.Wrap(err, "decode model")
	}
	return nil
}
