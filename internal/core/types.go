package core

import (
	"bytes"
	"encoding/json"
	"sort"
)

// SectionKind names one independently produced part of a document.
type SectionKind string

const (
	SectionPanel          SectionKind = "panel"
	SectionMicrohaplotype SectionKind = "microhaplotype"
	SectionSpecimen       SectionKind = "specimen"
	SectionExperiment     SectionKind = "experiment"
)

// Schema field names consumed by the transforms.
const (
	FieldTargetID       = "target_id"
	FieldForwardPrimers = "forward_primers"
	FieldReversePrimers = "reverse_primers"
	FieldForwardStart   = "forward_primers_start"
	FieldForwardEnd     = "forward_primers_end"
	FieldReverseStart   = "reverse_primers_start"
	FieldReverseEnd     = "reverse_primers_end"
	FieldInsertStart    = "insert_start"
	FieldInsertEnd      = "insert_end"
	FieldChrom          = "chrom"
	FieldStrand         = "strand"
	FieldGeneID         = "gene_id"
	FieldTargetType     = "target_type"

	FieldSampleID = "sampleID"
	FieldLocus    = "locus"
	FieldASV      = "asv"
	FieldReads    = "reads"

	FieldSpecimenID        = "specimen_id"
	FieldSampTaxonID       = "samp_taxon_id"
	FieldCollectionDate    = "collection_date"
	FieldCollectionCountry = "collection_country"
	FieldHostTaxonID       = "host_taxon_id"
	FieldLatLon            = "lat_lon"
	FieldProjectName       = "project_name"

	FieldExperimentSampleID = "experiment_sample_id"
	FieldPanelID            = "panel_id"
	FieldPlateName          = "plate_name"
	FieldPlateRow           = "plate_row"
	FieldPlateCol           = "plate_col"
	FieldSequencingInfoID   = "sequencing_info_id"
)

// FieldType represents the expected data type of a mapped column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInteger
)

// FieldSpec describes one target schema field.
type FieldSpec struct {
	Name     string
	Required bool
	Type     FieldType
}

// SectionDefinition describes the target schema of one section kind.
type SectionDefinition struct {
	Kind    SectionKind
	Label   string
	Aliases []string
	Order   int
	Fields  []FieldSpec
}

// Required returns the required field names in declaration order.
func (d SectionDefinition) Required() []string {
	var out []string
	for _, f := range d.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Optional returns the optional field names in declaration order.
func (d SectionDefinition) Optional() []string {
	var out []string
	for _, f := range d.Fields {
		if !f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// FieldNames returns every field name, required fields first.
func (d SectionDefinition) FieldNames() []string {
	return append(d.Required(), d.Optional()...)
}

// Mapping maps a target schema field to the source column that supplies it.
type Mapping map[string]string

// Column returns the source column for field, or "".
func (m Mapping) Column(field string) string { return m[field] }

// Clone returns an independent copy.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Fields returns the mapped target fields sorted by name.
func (m Mapping) Fields() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GenomeInfo describes the reference genome a panel was designed against.
type GenomeInfo struct {
	Name    string `json:"name"`
	TaxonID string `json:"taxon_id"`
	URL     string `json:"url"`
	Version string `json:"version"`
	GFFURL  string `json:"gff_url,omitempty"`
}

// Location is a genomic interval.
type Location struct {
	Chrom  string `json:"chrom"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Strand string `json:"strand,omitempty"`
}

// Primer is one primer sequence with its optional genomic location.
type Primer struct {
	Seq      string    `json:"seq"`
	Location *Location `json:"location,omitempty"`
}

// Target is one panel target. Additional holds extra source columns,
// serialized inline next to the schema fields.
type Target struct {
	TargetID       string    `json:"target_id"`
	ForwardPrimers []Primer  `json:"forward_primers"`
	ReversePrimers []Primer  `json:"reverse_primers"`
	InsertLocation *Location `json:"insert_location,omitempty"`
	GeneID         string    `json:"gene_id,omitempty"`
	TargetType     string    `json:"target_type,omitempty"`

	Additional map[string]string `json:"-"`
}

var targetKeys = []string{"target_id", "forward_primers", "reverse_primers", "insert_location", "gene_id", "target_type"}

func (t Target) MarshalJSON() ([]byte, error) {
	type plain Target
	return marshalWithExtras(plain(t), t.Additional)
}

func (t *Target) UnmarshalJSON(data []byte) error {
	type plain Target
	var p plain
	extras, err := unmarshalWithExtras(data, &p, targetKeys)
	if err != nil {
		return err
	}
	*t = Target(p)
	t.Additional = extras
	return nil
}

// Panel is the panel record stored under its panel_id.
type Panel struct {
	PanelID      string            `json:"panel_id"`
	TargetGenome GenomeInfo        `json:"target_genome"`
	Targets      map[string]Target `json:"targets"`
}

// PanelFragment is the output of the panel transform.
type PanelFragment struct {
	PanelInfo map[string]Panel `json:"panel_info"`
}

// PanelIDs returns the panel ids in the fragment, sorted.
func (f *PanelFragment) PanelIDs() []string {
	return sortedKeys(f.PanelInfo)
}

// RepresentativeSeq is one distinct sequence observed at a locus.
type RepresentativeSeq struct {
	MicrohaplotypeID string `json:"microhaplotype_id"`
	Seq              string `json:"seq"`
}

// RepresentativeTarget lists the distinct sequences of one locus.
type RepresentativeTarget struct {
	Seqs []RepresentativeSeq `json:"seqs"`
}

// RepresentativeSequences is the per-locus catalog of distinct sequences.
type RepresentativeSequences struct {
	BioinformaticsID string                          `json:"bioinformatics_id"`
	Targets          map[string]RepresentativeTarget `json:"targets"`
}

// DetectedHaplotype references a representative sequence with its read
// support. Additional holds extra requested columns, serialized inline.
type DetectedHaplotype struct {
	HaplotypeID string `json:"haplotype_id"`
	ReadCount   int64  `json:"read_count"`

	Additional map[string]string `json:"-"`
}

var detectedKeys = []string{"haplotype_id", "read_count"}

func (d DetectedHaplotype) MarshalJSON() ([]byte, error) {
	type plain DetectedHaplotype
	return marshalWithExtras(plain(d), d.Additional)
}

func (d *DetectedHaplotype) UnmarshalJSON(data []byte) error {
	type plain DetectedHaplotype
	var p plain
	extras, err := unmarshalWithExtras(data, &p, detectedKeys)
	if err != nil {
		return err
	}
	*d = DetectedHaplotype(p)
	d.Additional = extras
	return nil
}

// TargetResult holds the haplotypes detected at one locus.
type TargetResult struct {
	Microhaplotypes []DetectedHaplotype `json:"microhaplotypes"`
}

// SampleResult holds every locus result for one sample.
type SampleResult struct {
	SampleID      string                  `json:"sample_id"`
	TargetResults map[string]TargetResult `json:"target_results"`
}

// DetectedMicrohaplotypes is the per-sample detection table.
type DetectedMicrohaplotypes struct {
	BioinformaticsID string                  `json:"bioinformatics_id"`
	Samples          map[string]SampleResult `json:"samples"`
}

// MicrohaplotypeFragment is the output of the microhaplotype transform.
type MicrohaplotypeFragment struct {
	Detected       DetectedMicrohaplotypes `json:"microhaplotypes_detected"`
	Representative RepresentativeSequences `json:"representative_microhaplotype_sequences"`
}

// Record is one specimen or experiment row keyed by schema or column name.
type Record map[string]string

// SpecimenFragment is the output of the specimen transform.
type SpecimenFragment struct {
	SpecimenInfo map[string]Record `json:"specimen_info"`
}

// ExperimentFragment is the output of the experiment transform.
type ExperimentFragment struct {
	ExperimentInfo map[string]Record `json:"experiment_info"`
}

// Document is a complete Portable Microhaplotype Object.
type Document struct {
	PanelInfo               map[string]Panel        `json:"panel_info"`
	MicrohaplotypesDetected DetectedMicrohaplotypes `json:"microhaplotypes_detected"`
	RepresentativeSequences RepresentativeSequences `json:"representative_microhaplotype_sequences"`
	SpecimenInfo            map[string]Record       `json:"specimen_info"`
	ExperimentInfo          map[string]Record       `json:"experiment_info"`
}

// Encode writes v as indented JSON. Map keys are sorted, so identical values
// always encode to identical bytes.
func Encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func marshalWithExtras(v any, extras map[string]string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extras) == 0 {
		return data, err
	}

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, k := range sortedKeys(extras) {
		key, _ := json.Marshal(k)
		val, _ := json.Marshal(extras[k])
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// unmarshalWithExtras decodes the known keys into dst and returns every
// other key as an extra. Keys are compared exactly, so an extra that differs
// from a schema key only by case never lands in a struct field.
func unmarshalWithExtras(data []byte, dst any, known []string) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	fields := make(map[string]json.RawMessage, len(known))
	for _, k := range known {
		if v, ok := raw[k]; ok {
			fields[k] = v
			delete(raw, k)
		}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	extras := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			s = string(v)
		}
		extras[k] = s
	}
	return extras, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isReserved(name string, keys []string) bool {
	for _, k := range keys {
		if k == name {
			return true
		}
	}
	return false
}
