package core

import (
	"context"

	"github.com/JonMunkholm/pmobuilder/internal/logging"
	"github.com/JonMunkholm/pmobuilder/internal/table"
)

// RecordInput configures the specimen and experiment transforms.
type RecordInput struct {
	Mapping    Mapping
	Additional []string // source columns carried through under their own names
}

// TransformSpecimens keys every row by specimen_id.
func TransformSpecimens(ctx context.Context, t *table.Table, in RecordInput) (*SpecimenFragment, error) {
	records, err := transformRecords(t, MustGet(SectionSpecimen), FieldSpecimenID, in)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("specimen table converted", "specimens", len(records))
	return &SpecimenFragment{SpecimenInfo: records}, nil
}

// TransformExperiments keys every row by experiment_sample_id.
func TransformExperiments(ctx context.Context, t *table.Table, in RecordInput) (*ExperimentFragment, error) {
	records, err := transformRecords(t, MustGet(SectionExperiment), FieldExperimentSampleID, in)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("experiment table converted", "experiments", len(records))
	return &ExperimentFragment{ExperimentInfo: records}, nil
}

func transformRecords(t *table.Table, def SectionDefinition, key string, in RecordInput) (map[string]Record, error) {
	errs := checkColumns(t, in.Mapping, def)
	errs = append(errs, checkAdditional(t, identity(in.Additional), in.Additional, def.FieldNames())...)
	if len(errs) > 0 {
		return nil, errs
	}

	out := make(map[string]Record, t.Len())
	for i := 0; i < t.Len(); i++ {
		line := table.Line(i)
		rec := make(Record, len(def.Fields)+len(in.Additional))

		for _, f := range def.Fields {
			v, mapped := cell(t, in.Mapping, i, f.Name)
			if !mapped {
				continue
			}
			if v == "" {
				if f.Required {
					errs.Add(line, f.Name, "", "required field is empty")
				}
				continue
			}
			if f.Type == FieldInteger {
				if _, err := ParseCoordinate(v); err != nil {
					errs.Add(line, f.Name, v, "invalid integer")
					continue
				}
			}
			rec[f.Name] = v
		}
		for _, col := range in.Additional {
			rec[col], _ = t.Value(i, col)
		}

		id := rec[key]
		if id == "" {
			continue
		}
		if _, dup := out[id]; dup {
			errs.Add(line, key, id, "duplicate key")
			continue
		}
		out[id] = rec
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}
