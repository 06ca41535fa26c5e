package parser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// parseWorkbook reads the first sheet of an XLSX workbook. Raw cell values
// are requested so date cells surface as spreadsheet serials rather than
// locale-formatted text; the record parsers handle the conversion.
func parseWorkbook(data []byte) (*ParsedFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("parser: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("parser: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("parser: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeaders
	}

	headers := rows[0]
	if err := validateHeaders(headers); err != nil {
		return nil, err
	}

	return &ParsedFile{Headers: headers, Rows: rows[1:]}, nil
}
