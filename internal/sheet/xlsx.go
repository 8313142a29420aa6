package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first worksheet of an XLSX workbook with the same rules
// as ParseCSV.
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("sheet: invalid xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sheet: read %s: %w", sheets[0], err)
	}

	// GetRows trims trailing empty cells and reports gaps as empty rows. Gaps
	// are skipped like blank CSV lines, cells right of the header are ignored.
	records := make([][]string, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if i > 0 && len(records) > 0 && len(row) > len(records[0]) {
			row = row[:len(records[0])]
		}
		records = append(records, row)
	}

	return fromRecords(records)
}
