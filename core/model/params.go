package model

import (
	"fmt"
	"math"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// Hyperparameter values may arrive as Go literals or decoded from YAML, so
// numeric kinds are normalised here instead of asserting one concrete type.

// ParamInt converts v to int. Floats must be integral.
func ParamInt(key string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, scierrors.NewValidationError(key, "must be an integer", v)
		}
		return int(x), nil
	default:
		return 0, scierrors.NewValidationError(key, fmt.Sprintf("unsupported type %T", v), v)
	}
}

// ParamFloat converts v to float64.
func ParamFloat(key string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, scierrors.NewValidationError(key, fmt.Sprintf("unsupported type %T", v), v)
	}
}

// ParamString converts v to string.
func ParamString(key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", scierrors.NewValidationError(key, fmt.Sprintf("unsupported type %T", v), v)
	}
	return s, nil
}

// ParamBool converts v to bool.
func ParamBool(key string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, scierrors.NewValidationError(key, fmt.Sprintf("unsupported type %T", v), v)
	}
	return b, nil
}

// UnknownParam is returned by SetParams implementations for unknown keys.
func UnknownParam(modelName, key string) error {
	return scierrors.NewValueError(modelName+".SetParams", fmt.Sprintf("unknown parameter: %s", key))
}
