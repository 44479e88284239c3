package match

import (
	"sort"
	"strings"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

// CheckDuplicates fails with a ValidationError for every source column that
// more than one target field claims. Automatic matching never produces such
// a mapping; manual overrides can.
func CheckDuplicates(m core.Mapping) error {
	byColumn := make(map[string][]string)
	for field, col := range m {
		if col == "" {
			continue
		}
		byColumn[col] = append(byColumn[col], field)
	}

	cols := make([]string, 0, len(byColumn))
	for col, fields := range byColumn {
		if len(fields) > 1 {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	var errs core.ValidationErrors
	for _, col := range cols {
		fields := byColumn[col]
		sort.Strings(fields)
		errs.Add(0, strings.Join(fields, ", "), col, "mapped from the same source column")
	}
	return errs.Err()
}

// ApplyOverrides returns base with overrides applied. An override naming an
// empty column or "None" unmaps the field. Overrides must name known target
// fields and existing columns, and the result must pass CheckDuplicates.
func ApplyOverrides(base, overrides core.Mapping, columns, targets []string) (core.Mapping, error) {
	known := make(map[string]bool, len(targets))
	for _, t := range targets {
		known[t] = true
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	out := base.Clone()
	var errs core.ValidationErrors
	for _, field := range overrides.Fields() {
		col := strings.TrimSpace(overrides[field])
		switch {
		case !known[field]:
			errs.Add(0, field, col, "unknown target field")
		case col == "" || strings.EqualFold(col, "none"):
			delete(out, field)
		case !present[col]:
			errs.Add(0, field, col, "missing column in source table")
		default:
			out[field] = col
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	if err := CheckDuplicates(out); err != nil {
		return nil, err
	}
	return out, nil
}
