// Package match maps the column names of an uploaded table onto a fixed
// target schema.
//
// A Scorer rates every (source column, target field) pair; an assignment
// policy then turns the score matrix into a mapping in which each target
// field takes at most one column and each column feeds at most one field.
// Columns left over are reported as unused so callers can offer them as
// additional fields.
//
//	m, err := match.New(ctx, match.Options{Method: match.MethodFuzzy})
//	res, err := m.Match(ctx, tbl.Columns, core.MustGet(core.SectionPanel).FieldNames())
//
// Two policies are available. AssignOptimal resolves all pairs in descending
// score order, breaking ties by target declaration order and then column
// order. AssignLegacy walks the columns in table order, lets each pick its
// best field and drops the column when that field is already taken; it can
// starve a better later match and is kept for compatibility only.
package match
