package core

func init() {
	Register(SectionDefinition{
		Kind:    SectionPanel,
		Label:   "Panel information",
		Aliases: []string{"panel_info"},
		Order:   0,
		Fields: []FieldSpec{
			{Name: FieldTargetID, Required: true},
			{Name: FieldForwardPrimers, Required: true},
			{Name: FieldReversePrimers, Required: true},
			{Name: FieldForwardStart, Type: FieldInteger},
			{Name: FieldForwardEnd, Type: FieldInteger},
			{Name: FieldReverseStart, Type: FieldInteger},
			{Name: FieldReverseEnd, Type: FieldInteger},
			{Name: FieldInsertStart, Type: FieldInteger},
			{Name: FieldInsertEnd, Type: FieldInteger},
			{Name: FieldChrom},
			{Name: FieldStrand},
			{Name: FieldGeneID},
			{Name: FieldTargetType},
		},
	})

	Register(SectionDefinition{
		Kind:    SectionMicrohaplotype,
		Label:   "Microhaplotype data",
		Aliases: []string{"mhap", "mhap_data", "microhaplotypes"},
		Order:   1,
		Fields: []FieldSpec{
			{Name: FieldSampleID, Required: true},
			{Name: FieldLocus, Required: true},
			{Name: FieldASV, Required: true},
			{Name: FieldReads, Required: true, Type: FieldInteger},
		},
	})

	Register(SectionDefinition{
		Kind:    SectionSpecimen,
		Label:   "Specimen information",
		Aliases: []string{"specimen_info", "specimens"},
		Order:   2,
		Fields: []FieldSpec{
			{Name: FieldSpecimenID, Required: true},
			{Name: FieldSampTaxonID, Required: true},
			{Name: FieldCollectionDate, Required: true},
			{Name: FieldCollectionCountry, Required: true},
			{Name: FieldHostTaxonID},
			{Name: FieldLatLon},
			{Name: FieldProjectName},
		},
	})

	Register(SectionDefinition{
		Kind:    SectionExperiment,
		Label:   "Experiment information",
		Aliases: []string{"experiment_info", "experiments"},
		Order:   3,
		Fields: []FieldSpec{
			{Name: FieldExperimentSampleID, Required: true},
			{Name: FieldSpecimenID, Required: true},
			{Name: FieldPanelID, Required: true},
			{Name: FieldPlateName},
			{Name: FieldPlateRow},
			{Name: FieldPlateCol, Type: FieldInteger},
			{Name: FieldSequencingInfoID},
		},
	})
}
