package core

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/pmobuilder/internal/table"
)

var errNotInteger = errors.New("invalid integer")

// ParseCount parses an integer-like cell: "12", "12.0", "1,200" or "1e3".
// Fractions, negatives and non-numeric text are rejected.
func ParseCount(s string) (int64, error) {
	n, err := parseInteger(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNotInteger
	}
	return n, nil
}

// ParseCoordinate parses a genomic coordinate. Negative values are allowed
// so that tools emitting -1 for "unknown" still round-trip.
func ParseCoordinate(s string) (int64, error) {
	return parseInteger(s)
}

func parseInteger(s string) (int64, error) {
	s = strings.ReplaceAll(table.CleanCell(s), ",", "")
	if s == "" {
		return 0, errNotInteger
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotInteger
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, errNotInteger
	}
	return int64(f), nil
}

// SplitPrimers splits a primer cell on commas, upper-cases each sequence and
// drops empty entries.
func SplitPrimers(s string) []Primer {
	var out []Primer
	for _, p := range strings.Split(s, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, Primer{Seq: p})
		}
	}
	return out
}

// cell returns the trimmed value for a mapped field at row i. ok is false when
// the field is unmapped.
func cell(t *table.Table, m Mapping, i int, field string) (string, bool) {
	col := m.Column(field)
	if col == "" {
		return "", false
	}
	return t.Value(i, col)
}

// checkColumns verifies that every mapped column for fields exists and that
// every required field is mapped. All problems are reported together.
func checkColumns(t *table.Table, m Mapping, def SectionDefinition) ValidationErrors {
	var errs ValidationErrors
	for _, f := range def.Fields {
		col := m.Column(f.Name)
		switch {
		case col == "" && f.Required:
			errs.Add(0, f.Name, "", "required field is not mapped to a column")
		case col != "" && !t.Has(col):
			errs.Add(0, f.Name, col, "missing column in source table")
		}
	}
	return errs
}

// checkAdditional verifies that every additional column exists and that no
// output name collides with a schema key.
func checkAdditional(t *table.Table, extra map[string]string, order []string, reserved []string) ValidationErrors {
	var errs ValidationErrors
	var missing []string
	for _, col := range order {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, &ValidationError{
			Field:   strings.Join(missing, ", "),
			Message: "missing column in source table, could not add additional columns",
		})
	}
	for _, col := range order {
		if name := extra[col]; isReserved(name, reserved) {
			errs.Add(0, col, name, "additional column output name is reserved")
		}
	}
	return errs
}
