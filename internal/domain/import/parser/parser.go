// Package parser reads an uploaded movements file into a rectangular grid
// of header strings and raw cell values. Two formats are accepted: an XLSX
// workbook (first sheet only) and comma-delimited text, both with the
// first row as headers.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrNoHeaders is returned when the first row has no non-empty cells.
var ErrNoHeaders = errors.New("parser: file has no header row")

// ParsedFile is the immutable output of parsing one uploaded file.
type ParsedFile struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the raw value at (row, col), or "" when the row is ragged.
func (p *ParsedFile) Cell(row, col int) string {
	if row < 0 || row >= len(p.Rows) {
		return ""
	}
	r := p.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

var xlsxMagic = []byte{0x50, 0x4B, 0x03, 0x04} // zip container

// Parse reads the file into a ParsedFile. XLSX workbooks are recognized by
// their zip signature; everything else is treated as comma-delimited text.
// Any parse failure is a single error for the whole file.
func Parse(data []byte) (*ParsedFile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("parser: empty file")
	}
	if bytes.HasPrefix(data, xlsxMagic) {
		return parseWorkbook(data)
	}
	return parseDelimited(data)
}

func parseDelimited(data []byte) (*ParsedFile, error) {
	reader := csv.NewReader(bytes.NewReader(normalizeTextBytes(data)))
	reader.Comma = ','
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeaders
	}
	if err != nil {
		return nil, fmt.Errorf("parser: read header row: %w", err)
	}
	if err := validateHeaders(headers); err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parser: read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, rec)
	}

	return &ParsedFile{Headers: headers, Rows: rows}, nil
}

func validateHeaders(headers []string) error {
	for _, h := range headers {
		if strings.TrimSpace(h) != "" {
			return nil
		}
	}
	return ErrNoHeaders
}

// normalizeTextBytes strips a UTF-8 BOM and transcodes Latin-1 uploads so
// accented Spanish headers survive.
func normalizeTextBytes(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return data
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}
