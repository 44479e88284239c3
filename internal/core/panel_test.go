package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pmobuilder/internal/table"
)

func mustTable(t *testing.T, lines ...string) *table.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	return tbl
}

func testGenome() GenomeInfo {
	return GenomeInfo{
		Name:    "3D7",
		TaxonID: "5833",
		URL:     "https://plasmodb.org/3D7.fasta",
		Version: "2020-09-01",
	}
}

func panelMapping() Mapping {
	return Mapping{
		FieldTargetID:       "amplicon",
		FieldForwardPrimers: "fwd",
		FieldReversePrimers: "rev",
	}
}

func TestTransformPanel(t *testing.T) {
	tbl := mustTable(t,
		"amplicon\tfwd\trev\tnotes",
		"t1\tacgt\tTTGG\tfirst",
		"t2\tAAAA, cccc\tGGGG\tsecond",
	)

	frag, err := TransformPanel(context.Background(), tbl, PanelInput{
		PanelID:    "heomev1",
		Mapping:    panelMapping(),
		Genome:     testGenome(),
		Additional: []string{"notes"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"heomev1"}, frag.PanelIDs())
	panel := frag.PanelInfo["heomev1"]
	assert.Equal(t, "heomev1", panel.PanelID)
	assert.Equal(t, testGenome(), panel.TargetGenome)
	require.Len(t, panel.Targets, 2)

	t1 := panel.Targets["t1"]
	assert.Equal(t, []Primer{{Seq: "ACGT"}}, t1.ForwardPrimers)
	assert.Equal(t, []Primer{{Seq: "TTGG"}}, t1.ReversePrimers)
	assert.Equal(t, map[string]string{"notes": "first"}, t1.Additional)

	t2 := panel.Targets["t2"]
	assert.Equal(t, []Primer{{Seq: "AAAA"}, {Seq: "CCCC"}}, t2.ForwardPrimers)
}

func TestTransformPanel_JSONShape(t *testing.T) {
	tbl := mustTable(t,
		"amplicon\tfwd\trev\tnotes",
		"t1\tACGT\tTTGG\tx",
	)

	frag, err := TransformPanel(context.Background(), tbl, PanelInput{
		PanelID:    "P1",
		Mapping:    panelMapping(),
		Genome:     testGenome(),
		Additional: []string{"notes"},
	})
	require.NoError(t, err)

	data, err := Encode(frag)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"panel_info": {
			"P1": {
				"panel_id": "P1",
				"target_genome": {"name": "3D7", "taxon_id": "5833", "url": "https://plasmodb.org/3D7.fasta", "version": "2020-09-01"},
				"targets": {
					"t1": {
						"target_id": "t1",
						"forward_primers": [{"seq": "ACGT"}],
						"reverse_primers": [{"seq": "TTGG"}],
						"notes": "x"
					}
				}
			}
		}
	}`, string(data))

	var back PanelFragment
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, frag, &back)
}

func TestTransformPanel_Idempotent(t *testing.T) {
	lines := []string{
		"amplicon\tfwd\trev\textra_b\textra_a",
		"t3\tAC\tGT\t1\t2",
		"t1\tAC\tGT\t3\t4",
		"t2\tAC\tGT\t5\t6",
	}
	in := PanelInput{
		PanelID:    "P1",
		Mapping:    panelMapping(),
		Genome:     testGenome(),
		Additional: []string{"extra_b", "extra_a"},
	}

	first, err := TransformPanel(context.Background(), mustTable(t, lines...), in)
	require.NoError(t, err)
	second, err := TransformPanel(context.Background(), mustTable(t, lines...), in)
	require.NoError(t, err)

	a, err := Encode(first)
	require.NoError(t, err)
	b, err := Encode(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestTransformPanel_Locations(t *testing.T) {
	tbl := mustTable(t,
		"amplicon\tfwd\trev\tchr\tfs\tfe\trs\tre\tis\tie\tstrand\tgene",
		"t1\tACGT\tTTGG\tPf3D7_01\t100\t120\t300\t320\t121\t299\t+\tPF3D7_0100100",
		"t2\tACGT\tTTGG\tPf3D7_02\t\t\t\t\t\t\t-\t",
	)
	m := panelMapping()
	m[FieldChrom] = "chr"
	m[FieldForwardStart] = "fs"
	m[FieldForwardEnd] = "fe"
	m[FieldReverseStart] = "rs"
	m[FieldReverseEnd] = "re"
	m[FieldInsertStart] = "is"
	m[FieldInsertEnd] = "ie"
	m[FieldStrand] = "strand"
	m[FieldGeneID] = "gene"

	frag, err := TransformPanel(context.Background(), tbl, PanelInput{PanelID: "P1", Mapping: m, Genome: testGenome()})
	require.NoError(t, err)

	t1 := frag.PanelInfo["P1"].Targets["t1"]
	assert.Equal(t, &Location{Chrom: "Pf3D7_01", Start: 100, End: 120, Strand: "+"}, t1.ForwardPrimers[0].Location)
	assert.Equal(t, &Location{Chrom: "Pf3D7_01", Start: 300, End: 320, Strand: "+"}, t1.ReversePrimers[0].Location)
	assert.Equal(t, &Location{Chrom: "Pf3D7_01", Start: 121, End: 299, Strand: "+"}, t1.InsertLocation)
	assert.Equal(t, "PF3D7_0100100", t1.GeneID)

	t2 := frag.PanelInfo["P1"].Targets["t2"]
	assert.Nil(t, t2.ForwardPrimers[0].Location)
	assert.Nil(t, t2.InsertLocation)
	assert.Empty(t, t2.GeneID)
}

func TestTransformPanel_EmptyPanelID(t *testing.T) {
	tbl := mustTable(t, "amplicon\tfwd\trev", "t1\tA\tC")

	frag, err := TransformPanel(context.Background(), tbl, PanelInput{PanelID: "  ", Mapping: panelMapping(), Genome: testGenome()})
	require.Error(t, err)
	assert.Nil(t, frag)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "panel_id")
}

func TestTransformPanel_BlankGenomeFields(t *testing.T) {
	tbl := mustTable(t, "amplicon\tfwd\trev", "t1\tA\tC")
	genome := testGenome()
	genome.URL = ""
	genome.Version = " "

	_, err := TransformPanel(context.Background(), tbl, PanelInput{PanelID: "P1", Mapping: panelMapping(), Genome: genome})

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"genome_info.url", "genome_info.version"}, verrs.Fields())
}

func TestTransformPanel_MissingAdditionalColumns(t *testing.T) {
	tbl := mustTable(t, "amplicon\tfwd\trev", "t1\tA\tC")

	frag, err := TransformPanel(context.Background(), tbl, PanelInput{
		PanelID:    "P1",
		Mapping:    panelMapping(),
		Genome:     testGenome(),
		Additional: []string{"depth", "notes"},
	})
	require.Error(t, err)
	assert.Nil(t, frag)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "depth, notes")
}

func TestTransformPanel_RowErrors(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		mapping func(Mapping)
		want    []string
	}{
		{
			name:  "duplicate target",
			lines: []string{"amplicon\tfwd\trev", "t1\tA\tC", "t1\tG\tT"},
			want:  []string{"line 3", "duplicate target id"},
		},
		{
			name:  "blank cells",
			lines: []string{"amplicon\tfwd\trev", "\tA\tC", "t2\t\tC"},
			want:  []string{"line 2: target_id", "line 3: forward_primers"},
		},
		{
			name:    "unmapped required field",
			lines:   []string{"amplicon\tfwd\trev", "t1\tA\tC"},
			mapping: func(m Mapping) { delete(m, FieldReversePrimers) },
			want:    []string{"reverse_primers: required field is not mapped"},
		},
		{
			name:    "mapped column absent",
			lines:   []string{"amplicon\tfwd\trev", "t1\tA\tC"},
			mapping: func(m Mapping) { m[FieldForwardPrimers] = "forward" },
			want:    []string{"missing column", "forward"},
		},
		{
			name:  "bad coordinate",
			lines: []string{"amplicon\tfwd\trev\tchr\tis\tie", "t1\tA\tC\tc1\tten\t20"},
			mapping: func(m Mapping) {
				m[FieldChrom], m[FieldInsertStart], m[FieldInsertEnd] = "chr", "is", "ie"
			},
			want: []string{"line 2: insert_start", "invalid integer"},
		},
		{
			name:    "unpaired coordinates",
			lines:   []string{"amplicon\tfwd\trev\tchr\tis", "t1\tA\tC\tc1\t10"},
			mapping: func(m Mapping) { m[FieldChrom], m[FieldInsertStart] = "chr", "is" },
			want:    []string{"insert_end"},
		},
		{
			name:    "coordinates without chrom",
			lines:   []string{"amplicon\tfwd\trev\tis\tie", "t1\tA\tC\t10\t20"},
			mapping: func(m Mapping) { m[FieldInsertStart], m[FieldInsertEnd] = "is", "ie" },
			want:    []string{"chrom: required when coordinate columns are mapped"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := panelMapping()
			if tt.mapping != nil {
				tt.mapping(m)
			}

			frag, err := TransformPanel(context.Background(), mustTable(t, tt.lines...), PanelInput{
				PanelID: "P1",
				Mapping: m,
				Genome:  testGenome(),
			})
			require.Error(t, err)
			assert.Nil(t, frag)
			assert.ErrorIs(t, err, ErrValidation)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestTransformPanel_ReservedAdditionalColumn(t *testing.T) {
	tbl := mustTable(t, "target_id\tfwd\trev\tgene_id", "t1\tA\tC\tg")
	m := Mapping{FieldTargetID: "target_id", FieldForwardPrimers: "fwd", FieldReversePrimers: "rev"}

	_, err := TransformPanel(context.Background(), tbl, PanelInput{
		PanelID:    "P1",
		Mapping:    m,
		Genome:     testGenome(),
		Additional: []string{"gene_id"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestTransformPanel_CaseVariantAdditionalColumn(t *testing.T) {
	tbl := mustTable(t, "target_id\tfwd\trev\tgene\tGene_ID", "t1\tA\tC\tPF3D7_01\tother")
	m := Mapping{FieldTargetID: "target_id", FieldForwardPrimers: "fwd", FieldReversePrimers: "rev", FieldGeneID: "gene"}

	frag, err := TransformPanel(context.Background(), tbl, PanelInput{
		PanelID:    "P1",
		Mapping:    m,
		Genome:     testGenome(),
		Additional: []string{"Gene_ID"},
	})
	require.NoError(t, err)

	data, err := json.Marshal(frag)
	require.NoError(t, err)
	var back PanelFragment
	require.NoError(t, json.Unmarshal(data, &back))

	target := back.PanelInfo["P1"].Targets["t1"]
	assert.Equal(t, "PF3D7_01", target.GeneID)
	assert.Equal(t, map[string]string{"Gene_ID": "other"}, target.Additional)
	assert.Equal(t, frag, &back)
}

func TestTarget_UnmarshalKeepsExactKeys(t *testing.T) {
	var target Target
	require.NoError(t, json.Unmarshal(
		[]byte(`{"TARGET_ID":"x","target_id":"t1","forward_primers":[],"reverse_primers":[],"Target_Type":"y","n":3}`),
		&target,
	))
	assert.Equal(t, "t1", target.TargetID)
	assert.Empty(t, target.TargetType)
	assert.Equal(t, map[string]string{"TARGET_ID": "x", "Target_Type": "y", "n": "3"}, target.Additional)
}

func TestDetectedHaplotype_UnmarshalKeepsExactKeys(t *testing.T) {
	var d DetectedHaplotype
	require.NoError(t, json.Unmarshal([]byte(`{"haplotype_id":"L1.0","read_count":7,"Read_Count":"x"}`), &d))
	assert.Equal(t, DetectedHaplotype{HaplotypeID: "L1.0", ReadCount: 7, Additional: map[string]string{"Read_Count": "x"}}, d)
}
