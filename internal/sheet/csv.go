package sheet

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const utf8BOM = "\ufeff"

// Parse reads a sheet, choosing the decoder from the file extension. Anything
// that is not .xlsx is treated as CSV.
func Parse(filename string, r io.Reader) (*Table, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return ParseXLSX(r)
	}
	return ParseCSV(r)
}

// ParseCSV reads UTF-8 CSV with a header row. A leading byte order mark is
// ignored and header names are trimmed.
func ParseCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && string(prefix) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sheet: invalid csv: %w", err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	header := make([]string, len(records[0]))
	empty := true
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
		if header[i] != "" {
			empty = false
		}
	}
	if empty {
		return nil, ErrEmpty
	}

	return NewTable(header, records[1:])
}

// WriteCSV writes the columns named in order that exist in the table, header
// first. Unknown names in order are skipped.
func (t *Table) WriteCSV(w io.Writer, order []string) error {
	columns := t.ProjectColumns(order)
	if len(columns) == 0 {
		return errors.New("sheet: no columns to write")
	}

	idx := make([]int, len(columns))
	for i, name := range columns {
		idx[i] = t.index[name]
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return err
	}

	record := make([]string, len(columns))
	for _, row := range t.rows {
		for i, c := range idx {
			record[i] = row[c]
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
