// Package dataset holds the in-memory tabular form of a CSV document.
package dataset

import (
	"errors"
	"fmt"
	"slices"
)

// ErrNoColumn is returned when an operation names a column the table does not have.
var ErrNoColumn = errors.New("no such column")

// Table is an ordered collection of rows with named columns.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New builds a table, checking that every row matches the header width.
func New(columns []string, rows [][]string) (*Table, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(columns))
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	return slices.Index(t.Columns, name)
}

// Has reports whether the table has a column.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Missing returns the names that are not columns of t, in the given order.
func (t *Table) Missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if !t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Drop returns a new table without the named columns.
func (t *Table) Drop(names ...string) (*Table, error) {
	if missing := t.Missing(names...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, missing)
	}

	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !slices.Contains(names, c) {
			keep = append(keep, i)
		}
	}

	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = t.Columns[i]
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]string, len(keep))
		for j, i := range keep {
			out[j] = row[i]
		}
		rows[r] = out
	}
	return &Table{Columns: cols, Rows: rows}, nil
}

// Rename returns a new table whose header has from renamed to to.
// Rows are shared with t.
func (t *Table) Rename(from, to string) (*Table, error) {
	i := t.Index(from)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, from)
	}
	cols := slices.Clone(t.Columns)
	cols[i] = to
	return &Table{Columns: cols, Rows: t.Rows}, nil
}

// Take returns a new table holding the rows at the given indices, in that order.
func (t *Table) Take(indices []int) *Table {
	rows := make([][]string, len(indices))
	for j, i := range indices {
		rows[j] = t.Rows[i]
	}
	return &Table{Columns: slices.Clone(t.Columns), Rows: rows}
}
