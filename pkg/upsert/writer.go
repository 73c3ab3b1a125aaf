package upsert

import (
	"context"
	"fmt"

	"github.com/luxfi/explorer-init/pkg/database"
	"github.com/luxfi/explorer-init/pkg/metrics"
)

// Writer issues batched statements against one connection
type Writer struct {
	db      database.Execer
	metrics *metrics.Recorder
}

// NewWriter creates a Writer. rec may be nil.
func NewWriter(db database.Execer, rec *metrics.Recorder) *Writer {
	return &Writer{db: db, metrics: rec}
}

// Upsert writes rows to t in a single statement and returns the number of
// rows sent. An empty batch issues nothing.
func (w *Writer) Upsert(ctx context.Context, t Table, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query, args, err := t.Insert(rows)
	if err != nil {
		return 0, err
	}
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", t.Name, err)
	}

	kind := metrics.KindUpsert
	if t.OnConflict == Plain {
		kind = metrics.KindInsert
	}
	w.metrics.Statement(t.Name, kind, len(rows))
	return len(rows), nil
}

// Replace emulates an upsert on a table without a uniqueness constraint: rows
// matching all match columns are deleted first, then rows are inserted
// without a conflict clause. The two statements must stay in this order or
// repeated imports accumulate duplicates.
func (w *Writer) Replace(ctx context.Context, t Table, match []string, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query, args, err := t.Delete(rows, match)
	if err != nil {
		return 0, err
	}
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", t.Name, err)
	}
	w.metrics.Statement(t.Name, metrics.KindDelete, len(rows))

	return w.Upsert(ctx, t.WithAction(Plain), rows)
}

// Exec runs a single non-batched statement, e.g. a trailing UPDATE
func (w *Writer) Exec(ctx context.Context, table, query string, args ...any) error {
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	w.metrics.Statement(table, metrics.KindUpdate, 1)
	return nil
}
