package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "severity: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "severity: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースにテストファイル名が含まれること
			assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 7, 1)
	assert.Equal(t, "severity: Predict: dimension mismatch on axis 1 (features). Expected 10, got 7", err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 7, dimErr.Got)
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("PCA", "Transform")
	assert.Equal(t, "severity: PCA: this model is not fitted yet. Call Fit() before using Transform()", err.Error())

	var notFittedErr *NotFittedError
	assert.True(t, As(err, &notFittedErr))
}

func TestSchemaError(t *testing.T) {
	err := NewSchemaError("Preprocess", "Weather_Timestamp", "column not found")
	assert.Equal(t, "severity: Preprocess: schema error on column 'Weather_Timestamp': column not found", err.Error())

	var schemaErr *SchemaError
	require.True(t, As(err, &schemaErr))
	assert.Equal(t, "Weather_Timestamp", schemaErr.Column)
}

func TestInvalidArgumentError(t *testing.T) {
	err := NewInvalidArgumentError("ToECEF", "axis", "w")
	assert.Equal(t, "severity: ToECEF: invalid argument axis=w", err.Error())

	var argErr *InvalidArgumentError
	assert.True(t, As(err, &argErr))
}

func TestUnseenCategoryError(t *testing.T) {
	err := NewUnseenCategoryError("State", "ZZ", 3)
	assert.Contains(t, err.Error(), `"ZZ"`)
	assert.Contains(t, err.Error(), "row 3")

	var unseen *UnseenCategoryError
	require.True(t, As(err, &unseen))
	assert.Equal(t, "State", unseen.Column)
}

func TestTrainingFailure(t *testing.T) {
	cause := New("singular hessian")

	t.Run("fold", func(t *testing.T) {
		err := NewTrainingFailure("PCA+LogReg", "{regParam: 0}", 2, cause)
		assert.Contains(t, err.Error(), "fold 2")
		assert.True(t, Is(err, cause), "cause must stay reachable through Unwrap")
	})

	t.Run("refit", func(t *testing.T) {
		err := NewTrainingFailure("PCA+LogReg", "{regParam: 0}", -1, cause)
		assert.Contains(t, err.Error(), "refit")

		var tf *TrainingFailure
		require.True(t, As(err, &tf))
		assert.Equal(t, -1, tf.Fold)
	})
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("LogisticRegression", 100, "gradient norm above tolerance")
	assert.Equal(t, "LogisticRegression failed to converge after 100 iterations: gradient norm above tolerance", warn.Error())
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewUndefinedMetricWarning("precision", "no predicted samples", 0))
	require.Len(t, got, 1)

	var umw *UndefinedMetricWarning
	assert.True(t, As(got[0], &umw))
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "in CrossValidator.Fit")
	assert.True(t, Is(wrapped, ErrEmptyData))
	assert.Contains(t, wrapped.Error(), "in CrossValidator.Fit")

	wrappedf := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)
	assert.True(t, Is(wrappedf, ErrEmptyData))
	assert.Contains(t, wrappedf.Error(), "in Predict: expected 10, got 5")
}

func TestStacktrace(t *testing.T) {
	assert.Empty(t, Stacktrace(nil))
	err := NewValueError("Fit", "bad")
	assert.True(t, strings.Contains(Stacktrace(err), "errors_test.go"))
}

func TestCheckNumericalStability(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("gradient", []float64{1, 2, 3}, 0))

	err := CheckNumericalStability("gradient", []float64{1, math.NaN(), math.Inf(1)}, 4)
	require.Error(t, err)

	var nie *NumericalInstabilityError
	require.True(t, As(err, &nie))
	assert.Equal(t, 4, nie.Iteration)
	assert.Len(t, nie.Values, 2)

	assert.Error(t, CheckScalar("loss", math.Inf(-1), 1))
}

func TestSafeDivide(t *testing.T) {
	assert.Equal(t, 0.0, SafeDivide(3, 0))
	assert.InDelta(t, 1.5, SafeDivide(3, 2), 1e-12)
}

func TestStableSigmoidAndLogSumExp(t *testing.T) {
	assert.InDelta(t, 0.5, StableSigmoid(0), 1e-12)
	assert.InDelta(t, 1.0, StableSigmoid(800), 1e-12)
	assert.InDelta(t, 0.0, StableSigmoid(-800), 1e-12)

	got := LogSumExp([]float64{1000, 1000})
	assert.InDelta(t, 1000+math.Log(2), got, 1e-9)
	assert.True(t, math.IsInf(LogSumExp(nil), -1))
}

func TestRecover(t *testing.T) {
	t.Run("panic becomes PanicError", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "Tree.Fit")
			panic("index out of range")
		}
		err := fn()
		require.Error(t, err)

		var panicErr *PanicError
		require.True(t, As(err, &panicErr))
		assert.Equal(t, "Tree.Fit", panicErr.Operation)
		assert.NotEmpty(t, panicErr.StackTrace)
		assert.Equal(t, "panic in Tree.Fit: index out of range", panicErr.Error())
	})

	t.Run("no panic", func(t *testing.T) {
		err := SafeExecute("noop", func() error { return nil })
		assert.NoError(t, err)
	})

	t.Run("existing error is wrapped", func(t *testing.T) {
		base := New("base")
		fn := func() (err error) {
			defer Recover(&err, "op")
			err = base
			panic("boom")
		}
		err := fn()
		assert.True(t, Is(err, base))
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("SafeExecute returns fn error", func(t *testing.T) {
		err := SafeExecute("op", func() error { return ErrSingularMatrix })
		assert.True(t, Is(err, ErrSingularMatrix))
	})
}
