package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

func TestTestLoggerLevels(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("hidden")
	testLogger.Info("fold finished", FoldKey, 1, ScoreKey, 0.5)
	testLogger.Error("training failed", fmt.Errorf("boom"), ModelIDKey, 2)

	assert.NotContains(t, buffer.String(), "hidden")
	assert.True(t, testLogger.ContainsMessage("fold finished"))
	assert.True(t, testLogger.ContainsField(FoldKey, 1.0))
	assert.True(t, testLogger.ContainsField(ErrorKey, "boom"))
	assert.True(t, testLogger.ContainsField(ModelIDKey, 2.0))
}

func TestTestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	contextLogger := testLogger.With(ModelNameKey, "PCA+DecisionTrees", ModelIDKey, 2)
	contextLogger.Info("grid search started", OperationKey, OperationFit)

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "PCA+DecisionTrees", entries[0][ModelNameKey])
	assert.Equal(t, OperationFit, entries[0][OperationKey])
	assert.Equal(t, "INFO", entries[0]["level"])
}

func TestTestLoggerConcurrent(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	workers := testLogger.With(ComponentKey, "cv")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				workers.Info("fold scored", FoldKey, j, "worker", id)
			}
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 50)
}

func TestTestLoggerProvider(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelDebug)
	provider.GetLoggerWithName("report").Info("table written")
	assert.Contains(t, buffer.String(), `"ml.component":"report"`)

	provider.SetLevel(LevelError)
	provider.GetLogger().Info("dropped")
	assert.False(t, provider.Logger().ContainsMessage("dropped"))
}

func TestZerologProvider(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProviderWithWriter(&buf, LevelInfo)
	defer scierrors.SetZerologWarnFunc(nil)

	logger := provider.GetLoggerWithName("preprocessing").With(DatasetKey, "train")
	logger.Debug("hidden")
	logger.Info("rows kept", SamplesKey, 10)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "rows kept", entry["message"])
	assert.Equal(t, "preprocessing", entry[ComponentKey])
	assert.Equal(t, "train", entry[DatasetKey])
	assert.Equal(t, 10.0, entry[SamplesKey])
}

func TestZerologProviderError(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProviderWithWriter(&buf, LevelDebug)
	defer scierrors.SetZerologWarnFunc(nil)

	err := scierrors.NewSchemaError("Preprocess", "Severity", "column not found")
	provider.GetLogger().Error("stage failed", err, PhaseKey, PhasePreprocessing)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Contains(t, entry[ErrorKey], "Severity")
	assert.Contains(t, entry[StacktraceKey], "log_test.go")
	detail, ok := entry["error.detail"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "SchemaError", detail["type"])
}

func TestZerologProviderRoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	NewZerologProviderWithWriter(&buf, LevelInfo)
	defer scierrors.SetZerologWarnFunc(nil)

	scierrors.Warn(scierrors.NewConvergenceWarning("LogisticRegression", 100, "not converged"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "LogisticRegression")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
	assert.Panics(t, func() { ToLogLevel("verbose") })
}

func BenchmarkTestLogger(b *testing.B) {
	testLogger, _ := NewTestLogger(LevelInfo)
	contextLogger := testLogger.With(ModelNameKey, "PCA+LogReg")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		contextLogger.Info("benchmark message", IterationKey, i, SamplesKey, 1000)
	}
}
