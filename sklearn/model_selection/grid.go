package model_selection

import (
	"fmt"
	"sort"
	"strings"
)

// ParamMap assigns values to "step__param" keys of a pipeline.
type ParamMap map[string]interface{}

// String renders the map with sorted keys, e.g. "dtc__max_depth=5 pca__k=50".
func (p ParamMap) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, " ")
}

// Copy returns a shallow copy.
func (p ParamMap) Copy() ParamMap {
	out := make(ParamMap, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

type gridAxis struct {
	key    string
	values []interface{}
}

// ParamGridBuilder builds the cartesian product of parameter values.
//
//	grid := NewParamGridBuilder().
//	    AddGrid("pca__k", 50, 100).
//	    AddGrid("dtc__max_depth", 5, 10).
//	    Build()
type ParamGridBuilder struct {
	axes []gridAxis
}

// NewParamGridBuilder returns an empty builder.
func NewParamGridBuilder() *ParamGridBuilder {
	return &ParamGridBuilder{}
}

// AddGrid adds an axis. Adding the same key twice replaces its values.
func (b *ParamGridBuilder) AddGrid(key string, values ...interface{}) *ParamGridBuilder {
	for i := range b.axes {
		if b.axes[i].key == key {
			b.axes[i].values = values
			return b
		}
	}
	b.axes = append(b.axes, gridAxis{key: key, values: values})
	return b
}

// Keys returns the axis keys in insertion order.
func (b *ParamGridBuilder) Keys() []string {
	keys := make([]string, len(b.axes))
	for i, a := range b.axes {
		keys[i] = a.key
	}
	return keys
}

// Build expands the grid. The first axis added varies slowest. An empty
// builder yields a single empty ParamMap.
func (b *ParamGridBuilder) Build() []ParamMap {
	grid := []ParamMap{{}}
	for _, axis := range b.axes {
		if len(axis.values) == 0 {
			continue
		}
		next := make([]ParamMap, 0, len(grid)*len(axis.values))
		for _, base := range grid {
			for _, v := range axis.values {
				pm := base.Copy()
				pm[axis.key] = v
				next = append(next, pm)
			}
		}
		grid = next
	}
	return grid
}
