package core

import "fmt"

// CrossCheck verifies references between the sections of an assembled
// document: every detected locus has representative sequences and belongs to
// a panel target, and every experiment points at a known specimen and panel.
// Merge does not call it; consumers that need referential integrity do.
func CrossCheck(doc *Document) error {
	var problems []string

	panelTargets := make(map[string]bool)
	for _, p := range doc.PanelInfo {
		for id := range p.Targets {
			panelTargets[id] = true
		}
	}

	reps := doc.RepresentativeSequences.Targets
	for _, locus := range sortedKeys(reps) {
		if !panelTargets[locus] {
			problems = append(problems, fmt.Sprintf("representative locus %q is not a target of any panel", locus))
		}
	}

	for _, sampleID := range sortedKeys(doc.MicrohaplotypesDetected.Samples) {
		sample := doc.MicrohaplotypesDetected.Samples[sampleID]
		for _, locus := range sortedKeys(sample.TargetResults) {
			rep, ok := reps[locus]
			if !ok {
				problems = append(problems, fmt.Sprintf("sample %q locus %q has no representative sequences", sampleID, locus))
				continue
			}
			known := make(map[string]bool, len(rep.Seqs))
			for _, s := range rep.Seqs {
				known[s.MicrohaplotypeID] = true
			}
			for _, h := range sample.TargetResults[locus].Microhaplotypes {
				if !known[h.HaplotypeID] {
					problems = append(problems, fmt.Sprintf("sample %q haplotype %q is not a representative sequence", sampleID, h.HaplotypeID))
				}
			}
		}
	}

	for _, id := range sortedKeys(doc.ExperimentInfo) {
		exp := doc.ExperimentInfo[id]
		if _, ok := doc.SpecimenInfo[exp[FieldSpecimenID]]; !ok {
			problems = append(problems, fmt.Sprintf("experiment %q references unknown specimen %q", id, exp[FieldSpecimenID]))
		}
		if _, ok := doc.PanelInfo[exp[FieldPanelID]]; !ok {
			problems = append(problems, fmt.Sprintf("experiment %q references unknown panel %q", id, exp[FieldPanelID]))
		}
	}

	if len(problems) > 0 {
		return &IntegrityError{Section: "document", Problems: problems}
	}
	return nil
}
