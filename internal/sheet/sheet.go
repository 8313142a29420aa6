// Package sheet holds the in-memory translation table: one row per
// localization key, one column per language code.
package sheet

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty is returned when the input has no header row.
	ErrEmpty = errors.New("sheet: no header row")
	// ErrLengthMismatch is returned by SetColumn for a wrong number of values.
	ErrLengthMismatch = errors.New("sheet: column length does not match row count")
)

// Table is a rectangular string table with a named header.
type Table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// NewTable builds a table from a header and rows. Short rows are padded with
// empty cells, header names must be unique when non-empty.
func NewTable(header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrEmpty
	}

	t := &Table{
		header: make([]string, len(header)),
		index:  make(map[string]int, len(header)),
		rows:   make([][]string, 0, len(rows)),
	}
	copy(t.header, header)

	for i, name := range t.header {
		if name == "" {
			continue
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("sheet: duplicate column %q", name)
		}
		t.index[name] = i
	}

	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("sheet: row %d has %d fields, header has %d", i+2, len(row), len(header))
		}
		padded := make([]string, len(header))
		copy(padded, row)
		t.rows = append(t.rows, padded)
	}

	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Header returns a copy of the column names in their current order.
func (t *Table) Header() []string {
	out := make([]string, len(t.header))
	copy(out, t.header)
	return out
}

// HasColumn reports whether a column named name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]string, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, true
}

// SetColumn overwrites an existing column or appends a new one.
func (t *Table) SetColumn(name string, values []string) error {
	if name == "" {
		return errors.New("sheet: empty column name")
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("%w: got %d values for %d rows", ErrLengthMismatch, len(values), len(t.rows))
	}

	i, ok := t.index[name]
	if !ok {
		i = len(t.header)
		t.header = append(t.header, name)
		t.index[name] = i
		for r := range t.rows {
			t.rows[r] = append(t.rows[r], "")
		}
	}
	for r, v := range values {
		t.rows[r][i] = v
	}
	return nil
}

// SetConstant fills a column with the same value on every row.
func (t *Table) SetConstant(name, value string) error {
	values := make([]string, len(t.rows))
	for i := range values {
		values[i] = value
	}
	return t.SetColumn(name, values)
}

// ProjectColumns filters order down to the columns present in the table,
// keeping the order given.
func (t *Table) ProjectColumns(order []string) []string {
	out := make([]string, 0, len(order))
	for _, name := range order {
		if t.HasColumn(name) {
			out = append(out, name)
		}
	}
	return out
}
