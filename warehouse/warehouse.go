// Package warehouse reads the accident records from, and publishes the
// evaluation table to, the SQLite project database.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"github.com/YuminosukeSato/severity/dataset"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
)

// DefaultTable is the source table name.
const DefaultTable = "us_accidents"

// TimeLayout is how timestamps are stored in TEXT columns.
const TimeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{TimeLayout, "2006-01-02 15:04:05.999999999", time.RFC3339Nano, "2006-01-02T15:04:05"}

// Warehouse wraps the project database.
type Warehouse struct {
	db     *sql.DB
	table  string
	logger log.Logger
	clock  clockwork.Clock
}

// Option configures a Warehouse.
type Option func(*Warehouse)

// WithTable sets the source table name.
func WithTable(name string) Option { return func(w *Warehouse) { w.table = name } }

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option { return func(w *Warehouse) { w.logger = l } }

// WithClock sets the clock used for timings.
func WithClock(c clockwork.Clock) Option { return func(w *Warehouse) { w.clock = c } }

// Open opens (creating if needed) the SQLite database at path.
func Open(path string, opts ...Option) (*Warehouse, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, scierrors.Wrapf(err, "create database directory %s", dir)
		}
	}
	dsn := path
	if !strings.Contains(dsn, "_busy_timeout") {
		if strings.Contains(dsn, "?") {
			dsn += "&_busy_timeout=5000"
		} else {
			dsn += "?_busy_timeout=5000"
		}
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, scierrors.Wrap(err, "open sqlite")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, scierrors.Wrapf(err, "connect %s", path)
	}

	w := &Warehouse{
		db:     db,
		table:  DefaultTable,
		logger: log.GetLoggerWithName("warehouse"),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Close closes the database.
func (w *Warehouse) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

// Table returns the source table name.
func (w *Warehouse) Table() string { return w.table }

func sqlType(k dataset.Kind) string {
	switch k {
	case dataset.KindFloat:
		return "REAL"
	case dataset.KindInt, dataset.KindBool:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// CreateSourceTable creates the source table with the record schema if it
// does not exist.
func (w *Warehouse) CreateSourceTable(ctx context.Context) error {
	cols := make([]string, 0, len(dataset.RecordSchema)+1)
	cols = append(cols, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, f := range dataset.RecordSchema {
		cols = append(cols, fmt.Sprintf("%s %s", f.Name, sqlType(f.Kind)))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", w.table, strings.Join(cols, ",\n\t"))
	if _, err := w.db.ExecContext(ctx, stmt); err != nil {
		return scierrors.Wrapf(err, "create table %s", w.table)
	}
	return nil
}

// InsertFrame appends the frame's record-schema columns to the source
// table in one transaction and returns the number of rows written.
func (w *Warehouse) InsertFrame(ctx context.Context, frame *dataset.Frame) (int, error) {
	names := dataset.RequiredColumns()
	sel, err := frame.Select(names...)
	if err != nil {
		return 0, err
	}
	cols := make([]*dataset.Column, len(names))
	for i, n := range names {
		if cols[i], err = sel.Column(n); err != nil {
			return 0, err
		}
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, scierrors.Wrap(err, "begin insert")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		w.table, strings.Join(names, ", "), placeholders))
	if err != nil {
		return 0, scierrors.Wrapf(err, "prepare insert into %s", w.table)
	}
	defer stmt.Close()

	args := make([]interface{}, len(names))
	for row := 0; row < sel.Len(); row++ {
		for j, c := range cols {
			args[j] = cellValue(c, row)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, scierrors.Wrapf(err, "insert row %d", row)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, scierrors.Wrap(err, "commit insert")
	}
	return sel.Len(), nil
}

func cellValue(c *dataset.Column, i int) interface{} {
	if c.IsNull(i) {
		return nil
	}
	switch c.Kind {
	case dataset.KindFloat:
		return c.Floats[i]
	case dataset.KindInt:
		return c.Ints[i]
	case dataset.KindBool:
		if c.Bools[i] {
			return int64(1)
		}
		return int64(0)
	case dataset.KindTime:
		return c.Times[i].UTC().Format(TimeLayout)
	default:
		return c.Strings[i]
	}
}

// LoadDataset reads the record-schema columns of the source table. NULL
// cells become invalid cells of the frame.
func (w *Warehouse) LoadDataset(ctx context.Context) (*dataset.Frame, error) {
	start := w.clock.Now()
	names := dataset.RequiredColumns()
	rows, err := w.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(names, ", "), w.table))
	if err != nil {
		return nil, scierrors.Wrapf(err, "query %s", w.table)
	}
	defer rows.Close()

	b := newFrameBuilder(dataset.RecordSchema)
	for rows.Next() {
		dest := b.scanTargets()
		if err := rows.Scan(dest...); err != nil {
			return nil, scierrors.Wrapf(err, "scan %s", w.table)
		}
		if err := b.appendScanned(dest); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, scierrors.Wrapf(err, "read %s", w.table)
	}

	frame, err := b.frame()
	if err != nil {
		return nil, err
	}
	w.logger.Info("Dataset loaded",
		log.PhaseKey, log.PhaseLoad,
		log.DatasetKey, w.table,
		log.SamplesKey, frame.Len(),
		log.DurationMsKey, w.clock.Since(start).Milliseconds(),
	)
	return frame, nil
}

// Count returns the number of rows in the source table.
func (w *Warehouse) Count(ctx context.Context) (int, error) {
	var n int
	if err := w.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", w.table)).Scan(&n); err != nil {
		return 0, scierrors.Wrapf(err, "count %s", w.table)
	}
	return n, nil
}

// ParseTime accepts the stored layout and RFC 3339.
func ParseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
