package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator or candidate description.
	// Examples: "LogisticRegression", "PCA+RandomForest"
	ModelNameKey = "model.name"

	// ModelIDKey is the candidate number (1..4) produced by the model factory.
	ModelIDKey = "model.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work.
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline stage.
	PhaseKey = "ml.phase"

	// RunIDKey ties every record of one pipeline invocation together.
	RunIDKey = "run.id"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	ColumnKey   = "data.column"
	DatasetKey  = "data.name"
	PathKey     = "data.path"
	// CardinalityKey records the vocabulary size of a categorical column.
	CardinalityKey = "data.cardinality"
)

// Cross validation.
const (
	FoldKey        = "cv.fold"
	FoldsKey       = "cv.folds"
	GridSizeKey    = "cv.grid_size"
	GridPointKey   = "cv.grid_point"
	ParallelismKey = "cv.parallelism"
	ParamsKey      = "cv.params"
	MetricKey      = "cv.metric"
	ScoreKey       = "cv.score"
)

// Performance and metrics.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	AccuracyKey         = "metrics.accuracy"
	WeightedFMeasureKey = "metrics.weighted_f_measure"
	LossKey             = "metrics.loss"
	IterationKey        = "training.iteration"
)

// Error context.
const (
	ErrorKey      = "error"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and configuration.
const (
	RandomSeedKey     = "config.random_seed"
	RegularizationKey = "hyperparams.regularization"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationEvaluate  = "evaluate"
	OperationPersist   = "persist"

	PhaseLoad          = "load"
	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseEvaluation    = "evaluation"
	PhaseReporting     = "reporting"
)
