package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/pmobuilder/internal/logging"
	"github.com/JonMunkholm/pmobuilder/internal/table"
)

// MicrohaplotypeInput holds everything the microhaplotype transform needs
// besides the table.
type MicrohaplotypeInput struct {
	BioinformaticsID string
	Mapping          Mapping

	// Additional maps a source column to the name it gets in each detected
	// haplotype entry. An empty name keeps the column name.
	Additional map[string]string
}

type callRow struct {
	sample string
	locus  string
	seq    string
	reads  int64
	extras map[string]string
}

// TransformMicrohaplotypes builds the representative sequence table and the
// detected haplotype table from row-level calls.
//
// Representative ids are "<locus>.<n>" where n counts distinct sequences in
// order of first appearance within the locus. Loci and samples are emitted in
// ascending order; rows inside a group keep their input order.
func TransformMicrohaplotypes(ctx context.Context, t *table.Table, in MicrohaplotypeInput) (*MicrohaplotypeFragment, error) {
	def := MustGet(SectionMicrohaplotype)

	var errs ValidationErrors
	bioID := strings.TrimSpace(in.BioinformaticsID)
	if bioID == "" {
		errs.Add(0, "bioinformatics_id", "", "required identifier must not be empty")
	}

	extra, extraCols := normalizeAdditional(in.Additional)
	errs = append(errs, checkColumns(t, in.Mapping, def)...)
	errs = append(errs, checkAdditional(t, extra, extraCols, detectedKeys)...)
	errs = append(errs, checkOutputNames(extra, extraCols)...)
	if len(errs) > 0 {
		return nil, errs
	}

	rows := make([]callRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		line := table.Line(i)
		r := callRow{}
		var ok bool

		for _, f := range []struct {
			field string
			dst   *string
		}{
			{FieldSampleID, &r.sample},
			{FieldLocus, &r.locus},
			{FieldASV, &r.seq},
		} {
			*f.dst, _ = cell(t, in.Mapping, i, f.field)
			if *f.dst == "" {
				errs.Add(line, f.field, "", "required field is empty")
			}
		}

		raw, _ := cell(t, in.Mapping, i, FieldReads)
		if r.reads, ok = parseReads(raw); !ok {
			errs.Add(line, FieldReads, raw, "invalid integer")
		}

		if len(extraCols) > 0 {
			r.extras = make(map[string]string, len(extraCols))
			for _, col := range extraCols {
				r.extras[extra[col]], _ = t.Value(i, col)
			}
		}
		rows = append(rows, r)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	reps := representativeTable(rows)
	samples, err := detectedTable(rows, reps)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("microhaplotype table converted",
		"bioinformatics_id", bioID,
		"rows", len(rows),
		"loci", len(reps),
		"samples", len(samples),
	)

	return &MicrohaplotypeFragment{
		Detected: DetectedMicrohaplotypes{
			BioinformaticsID: bioID,
			Samples:          samples,
		},
		Representative: RepresentativeSequences{
			BioinformaticsID: bioID,
			Targets:          reps,
		},
	}, nil
}

func parseReads(s string) (int64, bool) {
	n, err := ParseCount(s)
	return n, err == nil
}

// representativeTable deduplicates (locus, seq) pairs and numbers the
// distinct sequences of each locus in first-appearance order.
func representativeTable(rows []callRow) map[string]RepresentativeTarget {
	seen := make(map[[2]string]bool, len(rows))
	out := make(map[string]RepresentativeTarget)

	for _, r := range rows {
		key := [2]string{r.locus, r.seq}
		if seen[key] {
			continue
		}
		seen[key] = true

		tgt := out[r.locus]
		tgt.Seqs = append(tgt.Seqs, RepresentativeSeq{
			MicrohaplotypeID: r.locus + "." + strconv.Itoa(len(tgt.Seqs)),
			Seq:              r.seq,
		})
		out[r.locus] = tgt
	}
	return out
}

// detectedTable groups rows by sample then locus and resolves every sequence
// against reps. The lookup is rebuilt from reps rather than shared with
// representativeTable so that a broken catalog is caught here.
func detectedTable(rows []callRow, reps map[string]RepresentativeTarget) (map[string]SampleResult, error) {
	lookup := make(map[string]map[string][]string, len(reps))
	for locus, tgt := range reps {
		bySeq := make(map[string][]string, len(tgt.Seqs))
		for _, s := range tgt.Seqs {
			bySeq[s.Seq] = append(bySeq[s.Seq], s.MicrohaplotypeID)
		}
		lookup[locus] = bySeq
	}

	bySample := make(map[string][]int)
	for i, r := range rows {
		bySample[r.sample] = append(bySample[r.sample], i)
	}

	var problems []string
	out := make(map[string]SampleResult, len(bySample))

	for _, sample := range sortedKeys(bySample) {
		results := make(map[string]TargetResult)
		for _, i := range bySample[sample] {
			r := rows[i]
			ids := lookup[r.locus][r.seq]
			if len(ids) != 1 {
				problems = append(problems, fmt.Sprintf(
					"line %d: sample %q locus %q sequence resolves to %d representative ids, want 1",
					table.Line(i), r.sample, r.locus, len(ids)))
				continue
			}

			res := results[r.locus]
			res.Microhaplotypes = append(res.Microhaplotypes, DetectedHaplotype{
				HaplotypeID: ids[0],
				ReadCount:   r.reads,
				Additional:  r.extras,
			})
			results[r.locus] = res
		}
		out[sample] = SampleResult{SampleID: sample, TargetResults: results}
	}

	if len(problems) > 0 {
		return nil, &IntegrityError{Section: "microhaplotypes_detected", Problems: problems}
	}
	return out, nil
}

// normalizeAdditional fills empty output names and returns the source
// columns in sorted order.
func normalizeAdditional(in map[string]string) (map[string]string, []string) {
	out := make(map[string]string, len(in))
	for col, name := range in {
		name = strings.TrimSpace(name)
		if name == "" {
			name = col
		}
		out[col] = name
	}
	return out, sortedKeys(out)
}

func checkOutputNames(extra map[string]string, cols []string) ValidationErrors {
	var errs ValidationErrors
	used := make(map[string]string, len(cols))
	for _, col := range cols {
		name := extra[col]
		if prev, dup := used[name]; dup {
			errs.Add(0, col, name, fmt.Sprintf("additional column output name already used by %q", prev))
			continue
		}
		used[name] = col
	}
	return errs
}
