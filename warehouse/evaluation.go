package warehouse

import (
	"context"
	"fmt"
	"strings"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/report"
)

// EvaluationTable receives the model comparison.
const EvaluationTable = "evaluation_results"

// RegisterEvaluation replaces the evaluation table with the comparison rows.
func (w *Warehouse) RegisterEvaluation(ctx context.Context, c *report.Comparison) error {
	cols := make([]string, len(report.Header))
	cols[0] = report.Header[0] + " TEXT"
	for i, h := range report.Header[1:] {
		cols[i+1] = h + " REAL"
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return scierrors.Wrap(err, "begin evaluation")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+EvaluationTable); err != nil {
		return scierrors.Wrapf(err, "drop %s", EvaluationTable)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", EvaluationTable, strings.Join(cols, ", "))); err != nil {
		return scierrors.Wrapf(err, "create %s", EvaluationTable)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?)", EvaluationTable, strings.Join(report.Header, ", "))
	for _, r := range c.Rows {
		args := []interface{}{r.Model}
		for _, v := range r.Values {
			args = append(args, v)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return scierrors.Wrapf(err, "insert %s", r.Model)
		}
	}
	if err := tx.Commit(); err != nil {
		return scierrors.Wrap(err, "commit evaluation")
	}

	w.logger.Info("Evaluation registered",
		log.PhaseKey, log.PhaseReporting,
		log.DatasetKey, EvaluationTable,
		log.SamplesKey, len(c.Rows),
	)
	return nil
}

// Evaluations reads the evaluation table back in insertion order.
func (w *Warehouse) Evaluations(ctx context.Context) (*report.Comparison, error) {
	rows, err := w.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid",
		strings.Join(report.Header, ", "), EvaluationTable))
	if err != nil {
		return nil, scierrors.Wrapf(err, "query %s", EvaluationTable)
	}
	defer rows.Close()

	c := &report.Comparison{}
	for rows.Next() {
		var r report.ComparisonRow
		v := r.Values[:]
		if err := rows.Scan(&r.Model, &v[0], &v[1], &v[2], &v[3], &v[4]); err != nil {
			return nil, scierrors.Wrapf(err, "scan %s", EvaluationTable)
		}
		c.Rows = append(c.Rows, r)
	}
	return c, rows.Err()
}
