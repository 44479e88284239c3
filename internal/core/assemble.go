package core

import "fmt"

// Sections carries the independently produced fragments of one document.
// A nil or empty fragment counts as absent.
type Sections struct {
	Panel           *PanelFragment          `json:"panel,omitempty"`
	Microhaplotypes *MicrohaplotypeFragment `json:"microhaplotypes,omitempty"`
	Specimens       *SpecimenFragment       `json:"specimens,omitempty"`
	Experiments     *ExperimentFragment     `json:"experiments,omitempty"`
}

// Has reports whether the fragment of kind is present.
func (s Sections) Has(kind SectionKind) bool {
	switch kind {
	case SectionPanel:
		return s.Panel != nil && len(s.Panel.PanelInfo) > 0
	case SectionMicrohaplotype:
		return s.Microhaplotypes != nil && len(s.Microhaplotypes.Detected.Samples) > 0
	case SectionSpecimen:
		return s.Specimens != nil && len(s.Specimens.SpecimenInfo) > 0
	case SectionExperiment:
		return s.Experiments != nil && len(s.Experiments.ExperimentInfo) > 0
	}
	return false
}

// Missing returns every absent section in document order.
func (s Sections) Missing() []string {
	var out []string
	for _, def := range All() {
		if !s.Has(def.Kind) {
			out = append(out, string(def.Kind))
		}
	}
	return out
}

// Merge combines all required fragments into one document. It fails closed:
// nothing is assembled unless every section is present and each section's
// map keys echo the identifiers inside it.
func Merge(s Sections) (*Document, error) {
	if missing := s.Missing(); len(missing) > 0 {
		return nil, &MissingSectionError{Sections: missing}
	}

	if problems := keyProblems(s); len(problems) > 0 {
		return nil, &IntegrityError{Section: "document", Problems: problems}
	}

	return &Document{
		PanelInfo:               s.Panel.PanelInfo,
		MicrohaplotypesDetected: s.Microhaplotypes.Detected,
		RepresentativeSequences: s.Microhaplotypes.Representative,
		SpecimenInfo:            s.Specimens.SpecimenInfo,
		ExperimentInfo:          s.Experiments.ExperimentInfo,
	}, nil
}

func keyProblems(s Sections) []string {
	var problems []string

	for _, id := range sortedKeys(s.Panel.PanelInfo) {
		if got := s.Panel.PanelInfo[id].PanelID; got != id {
			problems = append(problems, fmt.Sprintf("panel_info key %q holds panel_id %q", id, got))
		}
	}

	det, rep := s.Microhaplotypes.Detected, s.Microhaplotypes.Representative
	if det.BioinformaticsID == "" {
		problems = append(problems, "microhaplotypes_detected has no bioinformatics_id")
	}
	if det.BioinformaticsID != rep.BioinformaticsID {
		problems = append(problems, fmt.Sprintf(
			"microhaplotypes_detected bioinformatics_id %q does not match representative_microhaplotype_sequences %q",
			det.BioinformaticsID, rep.BioinformaticsID))
	}
	for _, id := range sortedKeys(det.Samples) {
		if got := det.Samples[id].SampleID; got != id {
			problems = append(problems, fmt.Sprintf("samples key %q holds sample_id %q", id, got))
		}
	}

	problems = append(problems, recordKeyProblems("specimen_info", FieldSpecimenID, s.Specimens.SpecimenInfo)...)
	problems = append(problems, recordKeyProblems("experiment_info", FieldExperimentSampleID, s.Experiments.ExperimentInfo)...)
	return problems
}

func recordKeyProblems(section, field string, records map[string]Record) []string {
	var problems []string
	for _, id := range sortedKeys(records) {
		if got := records[id][field]; got != id {
			problems = append(problems, fmt.Sprintf("%s key %q holds %s %q", section, id, field, got))
		}
	}
	return problems
}

// MergePanels combines several panel fragments, for documents covering more
// than one panel. A panel_id present in two fragments is a ValidationError.
func MergePanels(frags ...*PanelFragment) (*PanelFragment, error) {
	out := &PanelFragment{PanelInfo: make(map[string]Panel)}
	var errs ValidationErrors
	for _, f := range frags {
		if f == nil {
			continue
		}
		for _, id := range f.PanelIDs() {
			if _, dup := out.PanelInfo[id]; dup {
				errs.Add(0, FieldPanelID, id, "duplicate panel id")
				continue
			}
			out.PanelInfo[id] = f.PanelInfo[id]
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Present returns the present sections in document order.
func (s Sections) Present() []string {
	var out []string
	for _, def := range All() {
		if s.Has(def.Kind) {
			out = append(out, string(def.Kind))
		}
	}
	return out
}
