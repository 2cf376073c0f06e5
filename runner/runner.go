// Package runner wires the pipeline stages into one batch run: load,
// preprocess, split, persist, grid search, evaluate and report.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/YuminosukeSato/severity/core/model"
	"github.com/YuminosukeSato/severity/dataset"
	"github.com/YuminosukeSato/severity/metrics"
	"github.com/YuminosukeSato/severity/models"
	"github.com/YuminosukeSato/severity/pkg/config"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/pkg/observability"
	"github.com/YuminosukeSato/severity/preprocessing"
	"github.com/YuminosukeSato/severity/report"
	"github.com/YuminosukeSato/severity/sklearn/model_selection"
	"github.com/YuminosukeSato/severity/store"
	"github.com/YuminosukeSato/severity/warehouse"
)

// Env carries everything one run needs. It replaces process-wide session
// state: every stage receives its collaborators from here.
type Env struct {
	RunID     string
	Config    *config.Config
	Logger    log.Logger
	Clock     clockwork.Clock
	Metrics   *observability.Metrics
	Warehouse *warehouse.Warehouse
	Store     *store.Store
	// Out receives the console comparison table.
	Out io.Writer
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithLogger sets the base logger; the run id is added to it.
func WithLogger(l log.Logger) EnvOption { return func(e *Env) { e.Logger = l } }

// WithClock sets the clock.
func WithClock(c clockwork.Clock) EnvOption { return func(e *Env) { e.Clock = c } }

// WithOutput sets the writer for the console table.
func WithOutput(w io.Writer) EnvOption { return func(e *Env) { e.Out = w } }

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) EnvOption { return func(e *Env) { e.RunID = id } }

// NewEnv opens the warehouse and prepares the store for cfg.
func NewEnv(cfg *config.Config, opts ...EnvOption) (*Env, error) {
	e := &Env{
		Config:  cfg,
		Logger:  log.GetLogger(),
		Clock:   clockwork.NewRealClock(),
		Metrics: observability.NewMetrics(),
		Out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.RunID == "" {
		e.RunID = uuid.NewString()
	}
	e.Logger = e.Logger.With(log.RunIDKey, e.RunID)

	wh, err := warehouse.Open(cfg.Path(cfg.DBPath),
		warehouse.WithTable(cfg.SourceTable),
		warehouse.WithLogger(e.component("warehouse")),
		warehouse.WithClock(e.Clock),
	)
	if err != nil {
		return nil, err
	}
	e.Warehouse = wh
	e.Store = store.New(cfg.Root,
		store.WithPartitions(cfg.Partitions),
		store.WithLogger(e.component("store")),
		store.WithClock(e.Clock),
	)
	return e, nil
}

// Close releases the warehouse.
func (e *Env) Close() error {
	if e.Warehouse != nil {
		return e.Warehouse.Close()
	}
	return nil
}

func (e *Env) component(name string) log.Logger {
	return e.Logger.With(log.ComponentKey, name)
}

// stage runs fn and records its duration.
func (e *Env) stage(name string, fn func() error) error {
	start := e.Clock.Now()
	err := fn()
	e.Metrics.ObserveStage(name, e.Clock.Since(start))
	if err != nil {
		e.Logger.Error("Stage failed", err, log.PhaseKey, name)
	}
	return err
}

// Result is what a run produced.
type Result struct {
	Comparison *report.Comparison
	CV         map[int]*model_selection.CVResult
}

// Run executes the whole pipeline and writes every artifact. Any error is
// fatal to the run.
func (e *Env) Run(ctx context.Context) (*Result, error) {
	cfg := e.Config
	start := e.Clock.Now()
	e.Logger.Info("Run started", "db", cfg.Path(cfg.DBPath), "root", cfg.Root)

	selection, err := metrics.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	base, err := models.ParseOvRBase(cfg.OvRBase)
	if err != nil {
		return nil, err
	}

	var raw *dataset.Frame
	if err := e.stage(log.PhaseLoad, func() error {
		raw, err = e.Warehouse.LoadDataset(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	e.Metrics.RowsLoaded.Add(float64(raw.Len()))

	var (
		train, test  *dataset.Labeled
		featureNames []string
	)
	if err := e.stage(log.PhasePreprocessing, func() error {
		train, test, featureNames, err = e.prepare(ctx, raw)
		return err
	}); err != nil {
		return nil, err
	}

	cands, err := models.Candidates(train.Width(), base)
	if err != nil {
		return nil, err
	}
	if cfg.GridFile != "" {
		overrides, err := models.LoadGridFile(cfg.Path(cfg.GridFile))
		if err != nil {
			return nil, err
		}
		if err := overrides.Apply(cands); err != nil {
			return nil, err
		}
	}

	res := &Result{CV: make(map[int]*model_selection.CVResult, len(cands))}
	descriptions := make([]string, 0, len(cands))
	scores := make([][]float64, 0, len(cands))
	for _, c := range cands {
		var values []float64
		if err := e.stage(log.PhaseTraining, func() error {
			var cvRes *model_selection.CVResult
			values, cvRes, err = e.trainOne(ctx, c, train, test, featureNames, selection)
			res.CV[c.ID] = cvRes
			return err
		}); err != nil {
			return nil, err
		}
		descriptions = append(descriptions, c.Description)
		scores = append(scores, values)
	}

	if err := e.stage(log.PhaseReporting, func() error {
		res.Comparison, err = e.publish(ctx, descriptions, scores)
		return err
	}); err != nil {
		return nil, err
	}

	if err := e.Metrics.WriteTextfile(cfg.Path(cfg.MetricsFile)); err != nil {
		return nil, err
	}
	e.Logger.Info("Run finished", log.DurationMsKey, e.Clock.Since(start).Milliseconds())
	return res, nil
}

// prepare preprocesses raw records, splits them per label and saves both
// splits. Weights are recomputed on each split independently. The names of
// the assembled feature columns are returned for the model cards.
func (e *Env) prepare(ctx context.Context, raw *dataset.Frame) (train, test *dataset.Labeled, names []string, err error) {
	cfg := e.Config
	pre := preprocessing.NewAccidentPreprocessor(
		preprocessing.WithClipThreshold(cfg.ClipThreshold),
		preprocessing.WithLogger(e.component("preprocessing")),
		preprocessing.WithClock(e.Clock),
	)
	data, err := pre.Preprocess(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	e.Metrics.RowsDropped.Add(float64(raw.Len() - data.Len()))

	train, test, err = model_selection.SampleByLabel(data, cfg.TrainFraction, cfg.Seed)
	if err != nil {
		return nil, nil, nil, err
	}
	train = preprocessing.AttachWeights(train)
	test = preprocessing.AttachWeights(test)
	weights := preprocessing.ClassWeights(train.Label)
	for _, l := range preprocessing.SortedLabels(weights) {
		e.Logger.Debug("Class weight", "label", l, "weight", weights[l])
	}

	for name, d := range map[string]*dataset.Labeled{"train": train, "test": test} {
		if err := e.Store.SaveDataset(ctx, d, name); err != nil {
			return nil, nil, nil, err
		}
		if _, err := e.Store.Consolidate(name); err != nil {
			return nil, nil, nil, err
		}
	}
	e.Logger.Info("Split finished",
		log.PhaseKey, log.PhasePreprocessing,
		"train_samples", train.Len(),
		"test_samples", test.Len(),
		log.FeaturesKey, train.Width(),
		log.ClassesKey, len(model.UniqueClasses(train.Label)),
		log.RandomSeedKey, e.Config.Seed,
	)
	return train, test, pre.Pipeline().FeatureNames(), nil
}

// trainOne searches one candidate, persists the winner and scores it on
// the held-out split.
func (e *Env) trainOne(ctx context.Context, c models.Candidate, train, test *dataset.Labeled, featureNames []string, selection metrics.Metric) ([]float64, *model_selection.CVResult, error) {
	cfg := e.Config
	logger := e.component("model_selection").With(log.ModelIDKey, c.ID)
	cv := model_selection.NewCrossValidator(
		model_selection.WithFolds(cfg.Folds),
		model_selection.WithParallelism(cfg.Parallelism),
		model_selection.WithCVSeed(cfg.Seed),
		model_selection.WithMetric(selection),
		model_selection.WithName(c.Description),
		model_selection.WithObserver(e.Metrics),
		model_selection.WithCVLogger(logger),
		model_selection.WithCVClock(e.Clock),
	)
	best, cvRes, err := cv.Fit(ctx, train, c.Pipeline, c.Grid)
	if err != nil {
		return nil, nil, err
	}
	e.Metrics.BestCVScore.WithLabelValues(c.Description).Set(cvRes.BestScore())

	card := &model.ModelCard{
		ModelID:         c.ID,
		Description:     c.Description,
		RunID:           e.RunID,
		Hyperparameters: cvRes.BestParams(),
		Metric:          string(selection),
		CVScore:         cvRes.BestScore(),
		NFeatures:       train.Width(),
		FeatureNames:    featureNames,
		Classes:         best.Classes(),
		TrainedAt:       e.Clock.Now().UTC(),
	}
	if err := e.Store.SaveModel(best, c.ID, card); err != nil {
		return nil, nil, err
	}
	if _, err := e.Store.ExportPredictions(best, c.ID, test); err != nil {
		return nil, nil, err
	}

	values, err := report.Evaluate(best, test, metrics.ReportMetrics)
	if err != nil {
		return nil, nil, scierrors.Wrapf(err, "evaluate %s", c.Description)
	}
	for i, m := range metrics.ReportMetrics {
		e.Metrics.TestScore.WithLabelValues(c.Description, string(m)).Set(values[i])
	}
	logger.Info("Model evaluated",
		log.PhaseKey, log.PhaseEvaluation,
		log.ModelNameKey, c.Description,
		log.WeightedFMeasureKey, values[0],
		log.AccuracyKey, values[1],
	)
	return values, cvRes, nil
}

// publish writes the comparison as CSV, warehouse table, chart and console
// table.
func (e *Env) publish(ctx context.Context, descriptions []string, scores [][]float64) (*report.Comparison, error) {
	cmp, err := report.Compare(descriptions, scores)
	if err != nil {
		return nil, err
	}
	if err := cmp.SaveCSV(e.Store.OutputPath("evaluation.csv")); err != nil {
		return nil, err
	}
	if err := e.Warehouse.RegisterEvaluation(ctx, cmp); err != nil {
		return nil, err
	}
	if err := cmp.SavePlot(e.Store.OutputPath("evaluation.png")); err != nil {
		return nil, err
	}
	if _, err := fmt.Fprint(e.Out, cmp.Table()); err != nil {
		return nil, scierrors.Wrap(err, "print comparison")
	}
	if best, ok := cmp.Best(); ok {
		e.Logger.Info("Best model", log.ModelNameKey, best.Model, log.WeightedFMeasureKey, best.Values[0])
	}
	return cmp, nil
}
