package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads a UTF-8 CSV file header-first and hands out rows keyed by
// header name. Quoting is lazy and fields are trimmed; the column count may
// vary per row, with short rows padded to empty strings.
type CSVParser struct {
	headers    []string
	currentRow int
	reader     *csv.Reader
}

// NewCSVParser creates a parser over r, stripping a UTF-8 BOM if present and
// rejecting empty or non-UTF-8 content.
func NewCSVParser(r io.Reader) (*CSVParser, error) {
	buf := bufio.NewReader(r)

	bom, err := buf.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	if err := validateUTF8(buf); err != nil {
		return nil, err
	}

	reader := csv.NewReader(buf)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	return &CSVParser{reader: reader}, nil
}

// ParseFromBytes creates a parser from a byte slice
func ParseFromBytes(data []byte) (*CSVParser, error) {
	return NewCSVParser(bytes.NewReader(data))
}

// validateUTF8 peeks the head of the file; invalid byte sequences past the
// peek window surface later as csv read errors.
func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}

	if len(content) == 0 {
		return ErrEmptyFile
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}

	return nil
}

// ParseHeader reads the header row. It must be called before ReadRow.
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

	if len(p.headers) == 0 {
		return ErrMissingHeader
	}

	p.currentRow = 1 // header is row 1

	return nil
}

// ValidateHeaders returns the required headers the file is missing.
func (p *CSVParser) ValidateHeaders(required []string) []string {
	present := make(map[string]bool, len(p.headers))
	for _, h := range p.headers {
		present[h] = true
	}

	var missing []string
	for _, h := range required {
		if !present[h] {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data row keyed by header name, carrying its 1-indexed line
// number for error reporting.
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// GetOrDefault returns the value for a column, or default when absent or empty
func (r *Row) GetOrDefault(header, defaultVal string) string {
	if val, ok := r.Data[header]; ok && val != "" {
		return val
	}
	return defaultVal
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row, returning io.EOF when the file is exhausted.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		p.currentRow++
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}

	p.currentRow++

	row := &Row{
		LineNumber: p.currentRow,
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

// ReadAllRows reads the remaining rows, skipping fully empty ones.
func (p *CSVParser) ReadAllRows() ([]*Row, error) {
	var rows []*Row

	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}

		if row.IsEmpty() {
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// CurrentRow returns the current row number (1-indexed, header included)
func (p *CSVParser) CurrentRow() int {
	return p.currentRow
}
