// Package severity predicts the severity of US traffic accidents from the
// accident records kept in a local SQLite warehouse.
//
// A run loads the source table, turns the raw columns into a feature vector,
// splits the labelled rows per class, tunes four PCA-based classifiers with
// k-fold cross-validation and compares them on the held-out split.
//
// # Quick Start
//
// Seed the warehouse from the raw CSV export, then run the pipeline:
//
//	go run ./cmd/seed -csv data/US_Accidents_March23.csv -sample 50000
//	go run ./cmd/severity
//
// The same run from Go:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	env, err := runner.NewEnv(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer env.Close()
//
//	res, err := env.Run(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if best, ok := res.Comparison.Best(); ok {
//	    fmt.Println(best.Model)
//	}
//
// # Packages
//
//   - features: ECEF conversion of latitude/longitude and cyclical time encodings
//   - preprocessing: category clipping, indexing, one-hot encoding, scaling, class weights
//   - decomposition: PCA
//   - sklearn/linear_model, sklearn/tree, sklearn/ensemble, sklearn/multiclass: classifiers
//   - sklearn/pipeline: chained estimators with "step__param" addressing
//   - sklearn/model_selection: k-fold, parameter grids, stratified split, cross-validation
//   - metrics: weighted classification metrics
//   - models: the four candidate pipelines and their grids
//   - report: comparison table, CSV and chart
//   - warehouse: SQLite source and evaluation tables
//   - store: partitioned datasets, fitted models and predictions on disk
//   - runner: end-to-end orchestration
//   - pkg/config, pkg/log, pkg/errors, pkg/observability: ambient support
//
// # Configuration
//
// Settings come from the environment, optionally through a .env file.
// See pkg/config for the full list (SEVERITY_DB, CV_FOLDS, CV_METRIC, ...).
package severity
