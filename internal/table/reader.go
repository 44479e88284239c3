package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultMaxBytes caps how much of a table Read will load.
const DefaultMaxBytes = 50 << 20

// ErrTooLarge is returned when the input exceeds the configured size limit.
var ErrTooLarge = errors.New("table too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type options struct {
	delimiter rune
	maxBytes  int64
}

// Option configures Read.
type Option func(*options)

// WithDelimiter overrides the tab delimiter.
func WithDelimiter(r rune) Option {
	return func(o *options) { o.delimiter = r }
}

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// Read parses a delimited table whose first non-blank line is the header.
func Read(r io.Reader, opts ...Option) (*Table, error) {
	o := options{delimiter: '\t', maxBytes: DefaultMaxBytes}
	for _, fn := range opts {
		fn(&o)
	}

	data, err := io.ReadAll(io.LimitReader(r, o.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	if int64(len(data)) > o.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, o.maxBytes)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.ToValidUTF8(data, []byte("�"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = o.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &ParseError{Line: pe.Line, Message: pe.Err.Error()}
		}
		return nil, fmt.Errorf("parse table: %w", err)
	}

	var header []string
	var rows [][]string
	for _, rec := range records {
		if isEmptyRow(rec) {
			continue
		}
		if header == nil {
			header = rec
			continue
		}
		if len(rec) > len(header) && !isEmptyRow(rec[len(header):]) {
			return nil, &ParseError{
				Line:    len(rows) + 2,
				Message: fmt.Sprintf("row has %d cells but the header has %d columns", len(rec), len(header)),
			}
		}
		if len(rec) > len(header) {
			rec = rec[:len(header)]
		}
		rows = append(rows, rec)
	}

	if header == nil {
		return nil, &ParseError{Message: "empty table: no header row"}
	}

	return New(header, rows)
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string, opts ...Option) (*Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	t, err := Read(fh, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
