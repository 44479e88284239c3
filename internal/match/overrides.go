package match

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

// OverrideFile holds hand-corrected mappings, one block per section.
//
//	version: "1"
//	sections:
//	  microhaplotype:
//	    fields:
//	      sampleID: sample
//	      locus: target
//	    additional:
//	      umi: umi_count
type OverrideFile struct {
	Version  string                      `yaml:"version"`
	Sections map[string]*SectionOverride `yaml:"sections"`
}

// SectionOverride corrects the mapping of one section. Additional maps a
// source column to its output name; an empty name keeps the column name.
type SectionOverride struct {
	Fields     map[string]string `yaml:"fields,omitempty"`
	Additional map[string]string `yaml:"additional,omitempty"`
}

// For returns the override block for a section kind, accepting aliases.
func (f *OverrideFile) For(kind core.SectionKind) *SectionOverride {
	if f == nil {
		return nil
	}
	def, ok := core.Get(kind)
	if !ok {
		return nil
	}
	for _, name := range append([]string{string(def.Kind)}, def.Aliases...) {
		if o := f.Sections[name]; o != nil {
			return o
		}
	}
	return nil
}

// Mapping returns the field overrides as a core.Mapping.
func (o *SectionOverride) Mapping() core.Mapping {
	if o == nil {
		return nil
	}
	return core.Mapping(o.Fields)
}

// LoadOverrides loads and parses a YAML override file.
func LoadOverrides(path string) (*OverrideFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read override file %s: %w", path, err)
	}
	return ParseOverrides(data)
}

// ParseOverrides parses YAML override data and rejects unknown sections.
func ParseOverrides(data []byte) (*OverrideFile, error) {
	var f OverrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse override YAML: %w", err)
	}
	if f.Version == "" {
		f.Version = "1"
	}
	for name := range f.Sections {
		if _, err := core.Lookup(name); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// WriteOverrides writes f as YAML, typically to seed a file from automatic
// suggestions that a user then edits.
func WriteOverrides(f *OverrideFile, path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write override file %s: %w", path, err)
	}
	return nil
}
