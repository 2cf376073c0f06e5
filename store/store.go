// Package store persists prepared datasets, fitted models and predictions
// under a project root directory.
//
// Layout:
//
//	<root>/project/data/<name>/part-NNNNN.json  partitioned dataset
//	<root>/data/<name>.json                     consolidated dataset
//	<root>/models/model<ID>                     gob-encoded pipeline
//	<root>/models/model<ID>.json                model card
//	<root>/output/...                           predictions and reports
package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/core/parallel"
	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/preprocessing"
)

// DefaultPartitions is the number of part files SaveDataset writes.
const DefaultPartitions = 4

// Store is rooted at a project directory.
type Store struct {
	Root       string
	Partitions int

	logger log.Logger
	clock  clockwork.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithPartitions sets the number of dataset partitions.
func WithPartitions(n int) Option { return func(s *Store) { s.Partitions = n } }

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option { return func(s *Store) { s.logger = l } }

// WithClock sets the clock used for timings.
func WithClock(c clockwork.Clock) Option { return func(s *Store) { s.clock = c } }

// New returns a store rooted at root.
func New(root string, opts ...Option) *Store {
	s := &Store{
		Root:       root,
		Partitions: DefaultPartitions,
		logger:     log.GetLoggerWithName("store"),
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Partitions < 1 {
		s.Partitions = 1
	}
	return s
}

// record is one line of a dataset file: the (features, label) projection.
// Instance weights are not stored.
type record struct {
	Features []float64 `json:"features"`
	Label    float64   `json:"label"`
}

// PartitionDir is where SaveDataset writes the parts of name.
func (s *Store) PartitionDir(name string) string {
	return filepath.Join(s.Root, "project", "data", name)
}

// DatasetPath is the consolidated file of name.
func (s *Store) DatasetPath(name string) string {
	return filepath.Join(s.Root, "data", name+".json")
}

// OutputPath joins file under the output directory.
func (s *Store) OutputPath(file string) string {
	return filepath.Join(s.Root, "output", file)
}

// SaveDataset overwrites the partitioned copy of data as line-delimited
// JSON. Partitions are written concurrently and hold contiguous row ranges.
func (s *Store) SaveDataset(ctx context.Context, data *dataset.Labeled, name string) error {
	start := s.clock.Now()
	dir := s.PartitionDir(name)
	if err := os.RemoveAll(dir); err != nil {
		return scierrors.Wrapf(err, "clear %s", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return scierrors.Wrapf(err, "create %s", dir)
	}

	n := data.Len()
	parts := s.Partitions
	err := parallel.ForEach(ctx, parts, parts, func(_ context.Context, p int) error {
		lo, hi := p*n/parts, (p+1)*n/parts
		return writePart(filepath.Join(dir, fmt.Sprintf("part-%05d.json", p)), data, lo, hi)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Dataset saved",
		log.OperationKey, log.OperationPersist,
		log.DatasetKey, name,
		log.PathKey, dir,
		log.SamplesKey, n,
		log.FeaturesKey, data.Width(),
		log.DurationMsKey, s.clock.Since(start).Milliseconds(),
	)
	return nil
}

func writePart(path string, data *dataset.Labeled, lo, hi int) error {
	f, err := os.Create(path)
	if err != nil {
		return scierrors.Wrapf(err, "create %s", path)
	}
	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	for i := lo; i < hi; i++ {
		if err := enc.Encode(record{Features: data.Row(i), Label: data.Label[i]}); err != nil {
			f.Close()
			return scierrors.Wrapf(err, "encode row %d", i)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return scierrors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

// Consolidate concatenates the parts of name, in part order, into the
// single dataset file and returns its path.
func (s *Store) Consolidate(name string) (string, error) {
	parts, err := filepath.Glob(filepath.Join(s.PartitionDir(name), "part-*.json"))
	if err != nil {
		return "", scierrors.Wrap(err, "list partitions")
	}
	if len(parts) == 0 {
		return "", scierrors.NewValueError("Store.Consolidate", "no partitions for "+name)
	}
	sort.Strings(parts)

	out := s.DatasetPath(name)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", scierrors.Wrapf(err, "create %s", filepath.Dir(out))
	}
	dst, err := os.Create(out)
	if err != nil {
		return "", scierrors.Wrapf(err, "create %s", out)
	}
	for _, p := range parts {
		if err := appendFile(dst, p); err != nil {
			dst.Close()
			return "", err
		}
	}
	if err := dst.Close(); err != nil {
		return "", scierrors.Wrapf(err, "close %s", out)
	}
	return out, nil
}

func appendFile(dst io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return scierrors.Wrapf(err, "open %s", path)
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return scierrors.Wrapf(err, "copy %s", path)
	}
	return nil
}

// LoadDataset reads the consolidated file of name. Class weights are
// recomputed from the loaded labels.
func (s *Store) LoadDataset(name string) (*dataset.Labeled, error) {
	path := s.DatasetPath(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, scierrors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var (
		rows   [][]float64
		labels []float64
		width  = -1
	)
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var rec record
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, scierrors.Wrapf(err, "decode %s row %d", path, len(rows))
		}
		if width < 0 {
			width = len(rec.Features)
		} else if len(rec.Features) != width {
			return nil, scierrors.NewDimensionError("Store.LoadDataset", width, len(rec.Features), 1)
		}
		rows = append(rows, rec.Features)
		labels = append(labels, rec.Label)
	}
	if len(rows) == 0 {
		return nil, scierrors.NewValueError("Store.LoadDataset", "empty dataset "+name)
	}

	feats := mat.NewDense(len(rows), width, nil)
	for i, r := range rows {
		feats.SetRow(i, r)
	}
	out, err := dataset.NewLabeled(feats, labels)
	if err != nil {
		return nil, err
	}
	return preprocessing.AttachWeights(out), nil
}
