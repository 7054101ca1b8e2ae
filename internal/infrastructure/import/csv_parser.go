package csvimport

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads an import file: a UTF-8 CSV whose header row names the
// manifested columns of the target table, camelCase, with relation columns
// under a dotted prefix ("location.name"). Files exported from spreadsheet
// tools often start with a UTF-8 BOM; it is stripped before the header is
// read.
type CSVParser struct {
	headers []string
	line    int
	reader  *csv.Reader
}

// NewCSVParser wraps a reader and validates that its content is usable:
// non-empty and valid UTF-8. Quoted fields may span lines and rows may carry
// fewer fields than the header.
func NewCSVParser(r io.Reader) (*CSVParser, error) {
	buf := bufio.NewReader(r)

	head, err := buf.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(head) {
		return nil, ErrInvalidEncoding
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	p := &CSVParser{reader: csv.NewReader(buf)}
	p.reader.LazyQuotes = true
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1
	return p, nil
}

// ParseHeader consumes the first row as column names. Surrounding whitespace
// on each name is dropped.
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		p.headers[i] = strings.TrimSpace(h)
	}
	p.line = 1
	return nil
}

// Headers returns the column names from the header row.
func (p *CSVParser) Headers() []string {
	return p.headers
}

// Row is one data row keyed by header name. LineNumber is 1-based and counts
// the header, so the first data row is line 2.
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value under a header, "" when the row has no such column.
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty reports whether every column of the row is blank. Spreadsheet
// exports routinely pad files with such rows.
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next data row. Short rows fill the missing columns with
// "". Returns io.EOF when the file is exhausted.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.line++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.line, err)
	}

	row := &Row{
		LineNumber: p.line,
		Data:       make(map[string]string, len(p.headers)),
	}
	for i, header := range p.headers {
		if i < len(record) {
			row.Data[header] = strings.TrimSpace(record[i])
		} else {
			row.Data[header] = ""
		}
	}
	return row, nil
}

// ReadAllRows drains the file, dropping rows that are entirely blank.
func (p *CSVParser) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}
