package model_selection

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/YuminosukeSato/severity/core/parallel"
	"github.com/YuminosukeSato/severity/dataset"
	"github.com/YuminosukeSato/severity/metrics"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/sklearn/pipeline"
)

// TaskObserver receives the outcome of every (grid point, fold) task.
type TaskObserver interface {
	ObserveCVTask(model string, elapsed time.Duration, err error)
}

// CVResult holds the grid search outcome.
type CVResult struct {
	Grid []ParamMap
	// AvgMetrics[i] is the mean held-out score of Grid[i] over the folds.
	AvgMetrics []float64
	// FoldMetrics[i][f] is the score of Grid[i] on fold f.
	FoldMetrics [][]float64
	BestIndex   int
	Metric      metrics.Metric
}

// BestParams returns the winning ParamMap.
func (r *CVResult) BestParams() ParamMap { return r.Grid[r.BestIndex] }

// BestScore returns the winning mean score.
func (r *CVResult) BestScore() float64 { return r.AvgMetrics[r.BestIndex] }

// CrossValidator runs a grid search with k-fold cross-validation.
type CrossValidator struct {
	Folds       int
	Parallelism int
	Seed        uint64
	Metric      metrics.Metric
	// Name labels log records and TrainingFailure; defaults to the
	// pipeline's String().
	Name     string
	Observer TaskObserver

	logger log.Logger
	clock  clockwork.Clock
}

// CVOption configures a CrossValidator.
type CVOption func(*CrossValidator)

// WithFolds sets the number of folds.
func WithFolds(k int) CVOption { return func(cv *CrossValidator) { cv.Folds = k } }

// WithParallelism bounds the number of concurrent fit tasks.
func WithParallelism(p int) CVOption { return func(cv *CrossValidator) { cv.Parallelism = p } }

// WithCVSeed sets the fold shuffle seed.
func WithCVSeed(seed uint64) CVOption { return func(cv *CrossValidator) { cv.Seed = seed } }

// WithMetric sets the selection metric.
func WithMetric(m metrics.Metric) CVOption { return func(cv *CrossValidator) { cv.Metric = m } }

// WithName sets the model name used in logs and errors.
func WithName(name string) CVOption { return func(cv *CrossValidator) { cv.Name = name } }

// WithObserver receives per-task outcomes.
func WithObserver(o TaskObserver) CVOption { return func(cv *CrossValidator) { cv.Observer = o } }

// WithCVLogger sets the logger.
func WithCVLogger(l log.Logger) CVOption { return func(cv *CrossValidator) { cv.logger = l } }

// WithCVClock sets the clock used for task timings.
func WithCVClock(c clockwork.Clock) CVOption { return func(cv *CrossValidator) { cv.clock = c } }

// NewCrossValidator returns a validator with 3 folds, parallelism 5 and
// weightedFMeasure selection.
func NewCrossValidator(opts ...CVOption) *CrossValidator {
	cv := &CrossValidator{
		Folds:       3,
		Parallelism: 5,
		Seed:        42,
		Metric:      metrics.WeightedFMeasure,
		logger:      log.GetLoggerWithName("model_selection"),
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(cv)
	}
	return cv
}

type cvTask struct {
	grid, fold int
}

// Fit scores every grid point on every fold, picks the highest mean score
// (ties go to the lowest grid index) and refits a clone of est with the
// winning parameters on all rows. Held-out folds are scored with their
// instance weights. The first failing task cancels the rest and is
// returned as a TrainingFailure.
func (cv *CrossValidator) Fit(ctx context.Context, data *dataset.Labeled, est *pipeline.Pipeline, grid []ParamMap) (*pipeline.Pipeline, *CVResult, error) {
	if len(grid) == 0 {
		grid = []ParamMap{{}}
	}
	name := cv.Name
	if name == "" {
		name = est.String()
	}
	logger := cv.logger.With(log.ModelNameKey, name)

	folds, err := NewKFold(cv.Folds, true, cv.Seed).Split(data.Len())
	if err != nil {
		return nil, nil, err
	}

	tasks := make([]cvTask, 0, len(grid)*len(folds))
	for g := range grid {
		for f := range folds {
			tasks = append(tasks, cvTask{grid: g, fold: f})
		}
	}

	start := cv.clock.Now()
	logger.Info("Grid search started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, data.Len(),
		log.FeaturesKey, data.Width(),
		log.GridSizeKey, len(grid),
		log.FoldsKey, len(folds),
		log.ParallelismKey, cv.Parallelism,
		log.MetricKey, string(cv.Metric),
	)

	scores := make([][]float64, len(grid))
	for g := range scores {
		scores[g] = make([]float64, len(folds))
	}

	err = parallel.ForEach(ctx, len(tasks), cv.Parallelism, func(ctx context.Context, i int) error {
		t := tasks[i]
		taskStart := cv.clock.Now()
		var score float64
		err := scierrors.SafeExecute("CrossValidator.task", func() error {
			var err error
			score, err = cv.scoreFold(data, folds[t.fold], est, grid[t.grid])
			return err
		})
		if cv.Observer != nil {
			cv.Observer.ObserveCVTask(name, cv.clock.Since(taskStart), err)
		}
		if err != nil {
			return scierrors.NewTrainingFailure(name, grid[t.grid].String(), t.fold, err)
		}
		scores[t.grid][t.fold] = score
		logger.Debug("Fold scored",
			log.GridPointKey, t.grid,
			log.FoldKey, t.fold,
			log.ScoreKey, score,
		)
		return nil
	})
	if err != nil {
		logger.Error("Grid search failed", err)
		return nil, nil, err
	}

	result := &CVResult{
		Grid:        grid,
		AvgMetrics:  make([]float64, len(grid)),
		FoldMetrics: scores,
		Metric:      cv.Metric,
	}
	for g, fs := range scores {
		sum := 0.0
		for _, s := range fs {
			sum += s
		}
		result.AvgMetrics[g] = sum / float64(len(fs))
		if result.AvgMetrics[g] > result.AvgMetrics[result.BestIndex] {
			result.BestIndex = g
		}
	}

	best := est.Clone().(*pipeline.Pipeline)
	err = scierrors.SafeExecute("CrossValidator.refit", func() error {
		if err := best.SetParams(result.BestParams()); err != nil {
			return err
		}
		return best.Fit(data.Features, data.LabelVec())
	})
	if err != nil {
		err = scierrors.NewTrainingFailure(name, result.BestParams().String(), -1, err)
		logger.Error("Refit failed", err)
		return nil, nil, err
	}

	logger.Info("Grid search finished",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.ParamsKey, result.BestParams().String(),
		log.ScoreKey, result.BestScore(),
		log.DurationMsKey, cv.clock.Since(start).Milliseconds(),
	)
	return best, result, nil
}

func (cv *CrossValidator) scoreFold(data *dataset.Labeled, fold Fold, est *pipeline.Pipeline, params ParamMap) (float64, error) {
	p := est.Clone().(*pipeline.Pipeline)
	if err := p.SetParams(params); err != nil {
		return 0, err
	}
	train := data.Subset(fold.TrainIndices)
	if err := p.Fit(train.Features, train.LabelVec()); err != nil {
		return 0, err
	}
	held := data.Subset(fold.TestIndices)
	pred, err := p.Predict(held.Features)
	if err != nil {
		return 0, err
	}
	return metrics.Compute(cv.Metric, held.LabelVec(), metrics.ToVec(pred), held.Weight)
}
