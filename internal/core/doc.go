// Package core provides the conversion logic of the PMO builder.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the CLI and tests without
// modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Section definitions: registered in the registry, each names the target
//     schema fields of one section kind and marks which are required.
//   - Transforms: pure functions that turn a mapped table into one section
//     fragment (panel, microhaplotype, specimen, experiment).
//   - Assembly: [Merge] combines the four fragments into a [Document];
//     [CrossCheck] verifies that identifiers resolve between sections.
//
// # Section Registry
//
// Sections are registered at init time using [Register]:
//
//	core.Register(SectionDefinition{
//	    Kind:    SectionSpecimen,
//	    Label:   "Specimen information",
//	    Aliases: []string{"specimen_info"},
//	    Fields: []FieldSpec{
//	        {Name: FieldSpecimenID, Required: true},
//	        {Name: FieldHostTaxonID},
//	    },
//	})
//
// # Conversion
//
// Each transform validates the whole table before producing output and
// reports every problem at once as [ValidationErrors], carrying the source
// line and field of each bad cell.
//
//  1. The caller maps target fields to table columns ([Mapping])
//  2. The transform checks that every required field is mapped and present
//  3. Rows are converted and keyed by their identifier
//  4. Duplicate identifiers and empty required cells fail the conversion
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - CFG001-CFG002: Matching configuration errors
//   - VAL000-VAL007: Validation errors (empty ids, bad integers, duplicates)
//   - INT001, DOC001: Document integrity and missing sections
//   - FILE001-FILE004: File errors (size, parse, empty, missing)
//   - UPL002-UPL005: Conversion slots, cancellation and timeouts
package core
