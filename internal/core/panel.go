package core

import (
	"context"
	"strings"

	"github.com/JonMunkholm/pmobuilder/internal/logging"
	"github.com/JonMunkholm/pmobuilder/internal/table"
)

// PanelInput holds everything the panel transform needs besides the table.
type PanelInput struct {
	PanelID    string
	Mapping    Mapping
	Genome     GenomeInfo
	Additional []string // source columns carried through under their own names
}

// Validate checks the genome block. gff_url is optional.
func (g GenomeInfo) Validate() ValidationErrors {
	var errs ValidationErrors
	for _, f := range []struct{ name, value string }{
		{"genome_info.name", g.Name},
		{"genome_info.taxon_id", g.TaxonID},
		{"genome_info.url", g.URL},
		{"genome_info.version", g.Version},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs.Add(0, f.name, "", "required field is empty")
		}
	}
	return errs
}

// TransformPanel folds a panel table into a fragment keyed by panel_id.
// Nothing is returned unless the whole table converts cleanly.
func TransformPanel(ctx context.Context, t *table.Table, in PanelInput) (*PanelFragment, error) {
	def := MustGet(SectionPanel)

	var errs ValidationErrors
	panelID := strings.TrimSpace(in.PanelID)
	if panelID == "" {
		errs.Add(0, FieldPanelID, "", "required identifier must not be empty")
	}
	errs = append(errs, in.Genome.Validate()...)
	errs = append(errs, checkColumns(t, in.Mapping, def)...)
	errs = append(errs, checkAdditional(t, identity(in.Additional), in.Additional, targetKeys)...)
	errs = append(errs, checkLocationMapping(in.Mapping)...)
	if len(errs) > 0 {
		return nil, errs
	}

	targets := make(map[string]Target, t.Len())
	for i := 0; i < t.Len(); i++ {
		line := table.Line(i)

		id, _ := cell(t, in.Mapping, i, FieldTargetID)
		if id == "" {
			errs.Add(line, FieldTargetID, "", "required field is empty")
			continue
		}
		if _, dup := targets[id]; dup {
			errs.Add(line, FieldTargetID, id, "duplicate target id")
			continue
		}

		target := Target{TargetID: id}

		fwd, _ := cell(t, in.Mapping, i, FieldForwardPrimers)
		rev, _ := cell(t, in.Mapping, i, FieldReversePrimers)
		target.ForwardPrimers = SplitPrimers(fwd)
		target.ReversePrimers = SplitPrimers(rev)
		if len(target.ForwardPrimers) == 0 {
			errs.Add(line, FieldForwardPrimers, "", "required field is empty")
		}
		if len(target.ReversePrimers) == 0 {
			errs.Add(line, FieldReversePrimers, "", "required field is empty")
		}

		chrom, _ := cell(t, in.Mapping, i, FieldChrom)
		strand, _ := cell(t, in.Mapping, i, FieldStrand)
		if loc := rowLocation(t, in.Mapping, i, FieldForwardStart, FieldForwardEnd, chrom, strand, &errs); loc != nil {
			for j := range target.ForwardPrimers {
				l := *loc
				target.ForwardPrimers[j].Location = &l
			}
		}
		if loc := rowLocation(t, in.Mapping, i, FieldReverseStart, FieldReverseEnd, chrom, strand, &errs); loc != nil {
			for j := range target.ReversePrimers {
				l := *loc
				target.ReversePrimers[j].Location = &l
			}
		}
		target.InsertLocation = rowLocation(t, in.Mapping, i, FieldInsertStart, FieldInsertEnd, chrom, strand, &errs)

		target.GeneID, _ = cell(t, in.Mapping, i, FieldGeneID)
		target.TargetType, _ = cell(t, in.Mapping, i, FieldTargetType)

		if len(in.Additional) > 0 {
			target.Additional = make(map[string]string, len(in.Additional))
			for _, col := range in.Additional {
				target.Additional[col], _ = t.Value(i, col)
			}
		}

		targets[id] = target
	}
	if len(errs) > 0 {
		return nil, errs
	}

	logging.FromContext(ctx).Debug("panel table converted",
		"panel_id", panelID,
		"targets", len(targets),
		"additional_columns", len(in.Additional),
	)

	return &PanelFragment{
		PanelInfo: map[string]Panel{
			panelID: {
				PanelID:      panelID,
				TargetGenome: in.Genome,
				Targets:      targets,
			},
		},
	}, nil
}

// checkLocationMapping requires chrom whenever a coordinate column is mapped
// and coordinates to come in start/end pairs.
func checkLocationMapping(m Mapping) ValidationErrors {
	var errs ValidationErrors
	anyCoord := false
	for _, pair := range [][2]string{
		{FieldForwardStart, FieldForwardEnd},
		{FieldReverseStart, FieldReverseEnd},
		{FieldInsertStart, FieldInsertEnd},
	} {
		start, end := m.Column(pair[0]) != "", m.Column(pair[1]) != ""
		if start != end {
			missing := pair[0]
			if start {
				missing = pair[1]
			}
			errs.Add(0, missing, "", "coordinates must be mapped as a start and end pair")
		}
		anyCoord = anyCoord || start || end
	}
	if anyCoord && m.Column(FieldChrom) == "" {
		errs.Add(0, FieldChrom, "", "required when coordinate columns are mapped")
	}
	return errs
}

// rowLocation builds a location for one row when the coordinate pair is
// mapped and both cells are filled.
func rowLocation(t *table.Table, m Mapping, i int, startField, endField, chrom, strand string, errs *ValidationErrors) *Location {
	startCell, ok := cell(t, m, i, startField)
	if !ok {
		return nil
	}
	endCell, _ := cell(t, m, i, endField)
	if startCell == "" && endCell == "" {
		return nil
	}

	line := table.Line(i)
	start, err := ParseCoordinate(startCell)
	if err != nil {
		errs.Add(line, startField, startCell, "invalid integer")
		return nil
	}
	end, err := ParseCoordinate(endCell)
	if err != nil {
		errs.Add(line, endField, endCell, "invalid integer")
		return nil
	}
	if chrom == "" {
		errs.Add(line, FieldChrom, "", "required field is empty")
		return nil
	}
	return &Location{Chrom: chrom, Start: start, End: end, Strand: strand}
}

func identity(cols []string) map[string]string {
	m := make(map[string]string, len(cols))
	for _, c := range cols {
		m[c] = c
	}
	return m
}
