package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
	"github.com/JonMunkholm/pmobuilder/internal/match"
	"github.com/JonMunkholm/pmobuilder/internal/service"
	"github.com/JonMunkholm/pmobuilder/internal/table"
)

type tableFile struct {
	path string
	*table.Table
}

// mappingFlags are shared by every command that converts a table.
type mappingFlags struct {
	pairs      []string
	overrides  string
	method     string
	assignment string
	apiKey     string
	additional []string
	output     string
}

func (f *mappingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.pairs, "map", nil, "set a field mapping as target=column; an empty column or None unmaps the field (repeatable)")
	cmd.Flags().StringVar(&f.overrides, "overrides", "", "YAML file with per-section field and additional column overrides")
	cmd.Flags().StringVar(&f.method, "method", "", "similarity method: fuzzy or semantic (default from MATCH_METHOD)")
	cmd.Flags().StringVar(&f.assignment, "assignment", "", "conflict resolution: optimal or legacy (default from MATCH_ASSIGNMENT)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key for the semantic method (default from MATCH_API_KEY)")
	cmd.Flags().StringSliceVar(&f.additional, "additional", nil, "extra source columns to carry through, as column or column=name")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
}

func (f *mappingFlags) request() service.MatchRequest {
	return service.MatchRequest{Method: f.method, Assignment: f.assignment, APIKey: f.apiKey}
}

// parsePairs turns target=column arguments into a mapping.
func parsePairs(pairs []string) (core.Mapping, error) {
	out := make(core.Mapping, len(pairs))
	for _, p := range pairs {
		target, col, ok := strings.Cut(p, "=")
		target = strings.TrimSpace(target)
		if !ok || target == "" {
			return nil, core.NewValidationError("map", p, "expected target=column")
		}
		out[target] = strings.TrimSpace(col)
	}
	return out, nil
}

// parseAdditional turns column or column=name arguments into a column to
// output name map. An empty name keeps the column name.
func parseAdditional(args []string) map[string]string {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]string, len(args))
	for _, a := range args {
		col, name, _ := strings.Cut(a, "=")
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		out[col] = strings.TrimSpace(name)
	}
	return out
}

// resolved is a final mapping plus the additional columns to carry.
type resolved struct {
	mapping    core.Mapping
	additional map[string]string
}

// columns returns the additional columns in a stable order.
func (r resolved) columns() []string {
	cols := make([]string, 0, len(r.additional))
	for c := range r.additional {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// resolve matches the table's columns, then applies the override file and
// the --map pairs in that order.
func (a *app) resolve(ctx context.Context, kind core.SectionKind, t *tableFile, f *mappingFlags) (resolved, error) {
	def := core.MustGet(kind)

	res, err := a.svc.MatchColumns(ctx, kind, t.Columns, f.request())
	if err != nil {
		return resolved{}, err
	}
	mapping := res.Mapping
	log := logging.WithFields(ctx, "section", kind, "path", t.path)
	log.Info("columns matched", "method", res.Method, "assignment", res.Assignment, "mapped", len(mapping), "unused", len(res.Unused))

	additional := map[string]string{}
	if f.overrides != "" {
		file, err := match.LoadOverrides(f.overrides)
		if err != nil {
			return resolved{}, err
		}
		if o := file.For(kind); o != nil {
			if mapping, err = match.ApplyOverrides(release(mapping, o.Mapping()), o.Mapping(), t.Columns, def.FieldNames()); err != nil {
				return resolved{}, fmt.Errorf("%s: %w", f.overrides, err)
			}
			for col, name := range o.Additional {
				additional[col] = name
			}
		}
	}

	if len(f.pairs) > 0 {
		pairs, err := parsePairs(f.pairs)
		if err != nil {
			return resolved{}, err
		}
		if mapping, err = match.ApplyOverrides(release(mapping, pairs), pairs, t.Columns, def.FieldNames()); err != nil {
			return resolved{}, err
		}
	}
	for col, name := range parseAdditional(f.additional) {
		additional[col] = name
	}

	if unused := match.Unused(t.Columns, mapping); len(unused) > 0 {
		log.Info("columns not mapped", "columns", unused)
	}
	return resolved{mapping: mapping, additional: additional}, nil
}

// release drops suggested fields whose column an override hands to another
// field, so that correcting a suggestion does not read as a duplicate.
func release(base, overrides core.Mapping) core.Mapping {
	claimed := make(map[string]bool, len(overrides))
	for _, col := range overrides {
		claimed[col] = true
	}
	out := make(core.Mapping, len(base))
	for field, col := range base {
		if _, overridden := overrides[field]; !overridden && claimed[col] {
			continue
		}
		out[field] = col
	}
	return out
}
