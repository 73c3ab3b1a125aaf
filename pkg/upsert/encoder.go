// Package upsert builds and runs multi-row INSERT ... ON CONFLICT statements
// with positional ($N) parameters.
package upsert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyBatch is returned when a batch has no rows to infer its width from
	ErrEmptyBatch = errors.New("empty batch")

	// ErrRaggedBatch is returned when rows of one batch differ in arity
	ErrRaggedBatch = errors.New("rows differ in arity")
)

// Row is one tuple of a batch, in destination column order
type Row []any

// Prepare flattens rows into a parameter list and renders one placeholder
// group per row. Numbering starts at offset+1 so that several calls can share
// one parameter list: the next call's offset is the sum of the value counts
// returned so far.
func Prepare(rows []Row, offset int) ([]any, []string, error) {
	if len(rows) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	width := len(rows[0])
	if width == 0 {
		return nil, nil, fmt.Errorf("%w: row 0 has no columns", ErrRaggedBatch)
	}

	values := make([]any, 0, len(rows)*width)
	groups := make([]string, 0, len(rows))
	num := offset + 1

	var sb strings.Builder
	for i, row := range rows {
		if len(row) != width {
			return nil, nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrRaggedBatch, i, len(row), width)
		}

		sb.Reset()
		sb.WriteByte('(')
		for j := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(num))
			num++
		}
		sb.WriteByte(')')

		groups = append(groups, sb.String())
		values = append(values, row...)
	}

	return values, groups, nil
}

// Column extracts column i of every row as a single-column batch
func Column(rows []Row, i int) []Row {
	out := make([]Row, len(rows))
	for n, row := range rows {
		out[n] = Row{row[i]}
	}
	return out
}
