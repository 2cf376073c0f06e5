package errors

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// NumericalInstabilityError は最適化中に NaN や Inf が発生したことを示します。
type NumericalInstabilityError struct {
	Op        string
	Iteration int
	Values    []float64
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("severity: %s: numerical instability at iteration %d", e.Op, e.Iteration)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("op", e.Op).
		Int("iteration", e.Iteration).
		Floats64("values", e.Values)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack.
func NewNumericalInstabilityError(op string, values []float64, iteration int) error {
	if len(values) > 10 {
		values = values[:10]
	}
	return WithStack(&NumericalInstabilityError{Op: op, Iteration: iteration, Values: values})
}

// CheckNumericalStability は values に NaN/Inf が含まれていればエラーを返します。
func CheckNumericalStability(op string, values []float64, iteration int) error {
	var bad []float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, v)
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(op, bad, iteration)
	}
	return nil
}

// CheckScalar checks a single value.
func CheckScalar(op string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(op, []float64{value}, iteration)
	}
	return nil
}

// SafeDivide returns numerator/denominator, or 0 when the denominator is zero.
// Weighted metrics rely on the zero result for labels that were never predicted.
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// StableSigmoid はオーバーフローしないシグモイド関数です。
func StableSigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1 + ez)
}

// LogSumExp computes log(sum(exp(x))) without overflow.
func LogSumExp(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}
	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(maxVal, 0) {
		return maxVal
	}
	var sum float64
	for _, v := range values {
		sum += math.Exp(v - maxVal)
	}
	return maxVal + math.Log(sum)
}
