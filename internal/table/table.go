// Package table reads tab-delimited laboratory tables into memory.
//
// A Table is the raw material for every conversion: a header row naming the
// columns plus data rows, all kept as text. Readers strip a UTF-8 BOM, replace
// invalid UTF-8, drop blank lines and pad short rows so that every row has one
// cell per column.
package table

import (
	"fmt"
	"strings"
)

// Table is a header plus rows of text cells. Rows always have len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New builds a table from a header and rows, validating the header.
func New(columns []string, rows [][]string) (*Table, error) {
	cols := make([]string, len(columns))
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		c = CleanCell(c)
		if c == "" {
			return nil, &ParseError{Line: 1, Message: fmt.Sprintf("column %d has an empty name", i+1)}
		}
		if _, dup := idx[c]; dup {
			return nil, &ParseError{Line: 1, Message: fmt.Sprintf("duplicate column %q", c)}
		}
		idx[c] = i
		cols[i] = c
	}

	padded := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) < len(cols) {
			full := make([]string, len(cols))
			copy(full, row)
			row = full
		}
		padded = append(padded, row)
	}

	return &Table{Columns: cols, Rows: padded, index: idx}, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table has a column with the given name.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Pos returns the position of column, or -1.
func (t *Table) Pos(column string) int {
	if p, ok := t.index[column]; ok {
		return p
	}
	return -1
}

// Value returns the trimmed cell at row i for column. ok is false when the
// column does not exist.
func (t *Table) Value(i int, column string) (string, bool) {
	p, ok := t.index[column]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(t.Rows[i][p]), true
}

// Missing returns, in argument order, every column not present in the table.
func (t *Table) Missing(columns ...string) []string {
	var missing []string
	for _, c := range columns {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Line returns the 1-based file line of data row i (the header is line 1).
// Blank lines dropped while reading are not counted.
func Line(i int) int { return i + 2 }

// CleanCell trims whitespace and surrounding quotes left behind by
// spreadsheet exports.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// ParseError reports a malformed table.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}
