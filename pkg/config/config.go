// Package config loads the pipeline settings from the environment.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	DBPath      string
	SourceTable string
	Root        string
	LogLevel    string

	Folds         int
	Parallelism   int
	Seed          uint64
	TrainFraction float64
	ClipThreshold int
	Metric        string
	OvRBase       string
	Partitions    int

	// GridFile optionally overrides the candidate grids.
	GridFile    string
	MetricsFile string
}

// Load reads an optional .env file, then the environment, applying
// defaults where unset. Variables already set win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return nil, scierrors.Wrap(err, "load .env")
	}
	return FromEnv()
}

// LoadFile is Load with an explicit env file that must exist.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, scierrors.Wrapf(err, "load %s", path)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	var err error
	cfg := &Config{
		DBPath:      envOrDefault("SEVERITY_DB", filepath.Join("data", "projectdb.sqlite")),
		SourceTable: envOrDefault("SEVERITY_SOURCE_TABLE", "us_accidents"),
		Root:        envOrDefault("SEVERITY_ROOT", "."),
		LogLevel:    strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		Metric:      envOrDefault("CV_METRIC", "weightedFMeasure"),
		OvRBase:     strings.ToLower(envOrDefault("OVR_BASE", "gbt")),
		GridFile:    os.Getenv("GRID_FILE"),
		MetricsFile: envOrDefault("METRICS_FILE", filepath.Join("output", "metrics.prom")),
	}

	if cfg.Folds, err = intEnv("CV_FOLDS", 3); err != nil {
		return nil, err
	}
	if cfg.Parallelism, err = intEnv("CV_PARALLELISM", 5); err != nil {
		return nil, err
	}
	if cfg.ClipThreshold, err = intEnv("CLIP_THRESHOLD", 20); err != nil {
		return nil, err
	}
	if cfg.Partitions, err = intEnv("DATASET_PARTITIONS", 4); err != nil {
		return nil, err
	}
	seed, err := intEnv("SEED", 42)
	if err != nil {
		return nil, err
	}
	if seed < 0 {
		return nil, scierrors.NewValidationError("SEED", "must be >= 0", seed)
	}
	cfg.Seed = uint64(seed)
	if cfg.TrainFraction, err = floatEnv("TRAIN_FRACTION", 0.8); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return scierrors.NewValidationError("SEVERITY_DB", "is required", c.DBPath)
	case c.SourceTable == "":
		return scierrors.NewValidationError("SEVERITY_SOURCE_TABLE", "is required", c.SourceTable)
	case c.Folds < 2:
		return scierrors.NewValidationError("CV_FOLDS", "must be >= 2", c.Folds)
	case c.Parallelism < 1:
		return scierrors.NewValidationError("CV_PARALLELISM", "must be >= 1", c.Parallelism)
	case c.TrainFraction <= 0 || c.TrainFraction >= 1:
		return scierrors.NewValidationError("TRAIN_FRACTION", "must be in (0, 1)", c.TrainFraction)
	case c.ClipThreshold < 0:
		return scierrors.NewValidationError("CLIP_THRESHOLD", "must be >= 0", c.ClipThreshold)
	case c.Partitions < 1:
		return scierrors.NewValidationError("DATASET_PARTITIONS", "must be >= 1", c.Partitions)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return scierrors.NewValidationError("LOG_LEVEL", "must be debug, info, warn or error", c.LogLevel)
	}
	switch c.OvRBase {
	case "gbt", "logreg":
	default:
		return scierrors.NewValidationError("OVR_BASE", "must be gbt or logreg", c.OvRBase)
	}
	return nil
}

// Path resolves p against Root unless it is absolute.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, scierrors.NewValidationError(key, "must be an integer", s)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, scierrors.NewValidationError(key, "must be a number", s)
	}
	return f, nil
}

func isNotExist(err error) bool {
	return scierrors.Is(err, fs.ErrNotExist)
}
