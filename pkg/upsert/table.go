package upsert

import (
	"fmt"
	"strings"
)

// Action selects what an insert does when a row collides with an existing one
type Action int

const (
	// DoUpdate overwrites the Update columns from the proposed row
	DoUpdate Action = iota
	// DoNothing keeps the existing row
	DoNothing
	// Plain emits no conflict clause at all
	Plain
)

// Table describes the destination of a batch
type Table struct {
	Name    string
	Columns []string

	// ConflictKey names the uniqueness constraint DoUpdate relies on. It is
	// not checked against the schema.
	ConflictKey []string

	// Update lists the columns overwritten on conflict; nil means all Columns
	Update []string

	OnConflict Action
}

// NewTable builds a Table from comma separated column and key lists
func NewTable(name, columns, key string) Table {
	return Table{
		Name:        name,
		Columns:     SplitColumns(columns),
		ConflictKey: SplitColumns(key),
	}
}

// WithUpdate returns a copy of t that overwrites only columns on conflict
func (t Table) WithUpdate(columns string) Table {
	t.Update = SplitColumns(columns)
	return t
}

// WithAction returns a copy of t using action on conflict
func (t Table) WithAction(action Action) Table {
	t.OnConflict = action
	return t
}

// Insert renders the batched insert for rows
func (t Table) Insert(rows []Row) (string, []any, error) {
	values, groups, err := Prepare(rows, 0)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", t.Name, err)
	}
	if w := len(rows[0]); w != len(t.Columns) {
		return "", nil, fmt.Errorf("%s: %w: rows have %d columns, table declares %d", t.Name, ErrRaggedBatch, w, len(t.Columns))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s(%s) VALUES %s", t.Name, strings.Join(t.Columns, ", "), strings.Join(groups, ", "))

	switch t.OnConflict {
	case DoUpdate:
		if len(t.ConflictKey) == 0 {
			return "", nil, fmt.Errorf("%s: conflict key required for DO UPDATE", t.Name)
		}
		update := t.Update
		if update == nil {
			update = t.Columns
		}
		fmt.Fprintf(&sb, " ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(t.ConflictKey, ", "), ConflictsOf(update))
	case DoNothing:
		if len(t.ConflictKey) > 0 {
			fmt.Fprintf(&sb, " ON CONFLICT (%s) DO NOTHING", strings.Join(t.ConflictKey, ", "))
		} else {
			sb.WriteString(" ON CONFLICT DO NOTHING")
		}
	case Plain:
	default:
		return "", nil, fmt.Errorf("%s: unknown conflict action %d", t.Name, t.OnConflict)
	}
	sb.WriteByte(';')

	return sb.String(), values, nil
}

// Delete renders a batched delete of every row whose match columns appear
// among the incoming values, one IN list per column. The IN lists share one
// parameter list through chained offsets.
func (t Table) Delete(rows []Row, match []string) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("%s: %w", t.Name, ErrEmptyBatch)
	}
	for i, row := range rows {
		if len(row) != len(t.Columns) {
			return "", nil, fmt.Errorf("%s: %w: row %d has %d columns, table declares %d", t.Name, ErrRaggedBatch, i, len(row), len(t.Columns))
		}
	}

	var (
		args  []any
		conds []string
	)
	for _, col := range match {
		idx := t.index(col)
		if idx < 0 {
			return "", nil, fmt.Errorf("%s: unknown column %s", t.Name, col)
		}
		values, groups, err := Prepare(Column(rows, idx), len(args))
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", t.Name, err)
		}
		// single-column groups render as "($n)"; strip to a flat IN list
		for i, g := range groups {
			groups[i] = strings.Trim(g, "()")
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", col, strings.Join(groups, ", ")))
		args = append(args, values...)
	}

	return fmt.Sprintf("DELETE FROM %s WHERE %s;", t.Name, strings.Join(conds, " AND ")), args, nil
}

func (t Table) index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}
