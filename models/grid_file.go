package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/sklearn/model_selection"
)

// GridOverrides maps a candidate ID to the grid that replaces its default.
type GridOverrides map[int]*model_selection.ParamGridBuilder

// gridFile is the YAML layout. Axis order inside each model is kept, so the
// first listed parameter varies slowest:
//
//	models:
//	  2:
//	    pca__k: [10, 20]
//	    dtc__max_depth: [3]
type gridFile struct {
	Models map[int]yaml.Node `yaml:"models"`
}

// LoadGridFile reads overrides from a YAML file.
func LoadGridFile(path string) (GridOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, scierrors.Wrapf(err, "read grid file %s", path)
	}
	return ParseGrid(data)
}

// ParseGrid decodes YAML overrides.
func ParseGrid(data []byte) (GridOverrides, error) {
	var f gridFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, scierrors.Wrap(err, "parse grid file")
	}
	out := make(GridOverrides, len(f.Models))
	for id, node := range f.Models {
		if node.Kind != yaml.MappingNode {
			return nil, scierrors.NewValueError("ParseGrid", fmt.Sprintf("model %d: expected a mapping", id))
		}
		b := model_selection.NewParamGridBuilder()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, values := node.Content[i].Value, node.Content[i+1]
			if values.Kind != yaml.SequenceNode || len(values.Content) == 0 {
				return nil, scierrors.NewValueError("ParseGrid",
					fmt.Sprintf("model %d: %s must be a non-empty list", id, key))
			}
			vals := make([]interface{}, len(values.Content))
			for j, v := range values.Content {
				if err := v.Decode(&vals[j]); err != nil {
					return nil, scierrors.Wrapf(err, "model %d: %s", id, key)
				}
			}
			b.AddGrid(key, vals...)
		}
		out[id] = b
	}
	return out, nil
}

// Apply replaces the grids of the matching candidates. Unknown IDs and keys
// the pipeline does not accept are rejected.
func (o GridOverrides) Apply(cands []Candidate) error {
	byID := make(map[int]int, len(cands))
	for i, c := range cands {
		byID[c.ID] = i
	}
	for id, b := range o {
		i, ok := byID[id]
		if !ok {
			return scierrors.NewInvalidArgumentError("GridOverrides.Apply", "model", id)
		}
		params := cands[i].Pipeline.GetParams()
		for _, key := range b.Keys() {
			if _, ok := params[key]; !ok {
				return scierrors.NewInvalidArgumentError("GridOverrides.Apply", key, id)
			}
		}
		cands[i].Grid = b.Build()
	}
	return nil
}
