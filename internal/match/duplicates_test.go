package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

func TestCheckDuplicates(t *testing.T) {
	assert.NoError(t, CheckDuplicates(nil))
	assert.NoError(t, CheckDuplicates(core.Mapping{"sampleID": "sample", "locus": "target"}))

	err := CheckDuplicates(core.Mapping{
		"sampleID": "sample",
		"locus":    "sample",
		"asv":      "seq",
		"reads":    "seq",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)

	var errs core.ValidationErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 2)
	assert.Equal(t, "locus, sampleID", errs[0].Field)
	assert.Equal(t, "sample", errs[0].Value)
	assert.Equal(t, "asv, reads", errs[1].Field)
	assert.Equal(t, "seq", errs[1].Value)
	assert.Equal(t, "mapped from the same source column", errs[1].Message)
	assert.Equal(t, "VAL005", core.MapError(err).Code)
}

func TestApplyOverrides(t *testing.T) {
	columns := []string{"sample", "target", "hap_seq", "read_ct"}
	targets := core.MustGet(core.SectionMicrohaplotype).FieldNames()
	base := core.Mapping{"sampleID": "sample", "locus": "target", "reads": "read_ct"}

	t.Run("replace and unmap", func(t *testing.T) {
		got, err := ApplyOverrides(base, core.Mapping{"asv": "hap_seq", "reads": "None"}, columns, targets)
		require.NoError(t, err)
		assert.Equal(t, core.Mapping{"sampleID": "sample", "locus": "target", "asv": "hap_seq"}, got)
		assert.Equal(t, "read_ct", base["reads"], "base must not be modified")
	})

	t.Run("empty column unmaps", func(t *testing.T) {
		got, err := ApplyOverrides(base, core.Mapping{"locus": ""}, columns, targets)
		require.NoError(t, err)
		_, ok := got["locus"]
		assert.False(t, ok)
	})

	tests := []struct {
		name      string
		overrides core.Mapping
		want      string
	}{
		{"unknown field", core.Mapping{"haplotype": "hap_seq"}, "unknown target field"},
		{"missing column", core.Mapping{"asv": "sequence"}, "missing column in source table"},
		{"duplicate column", core.Mapping{"asv": "sample"}, "mapped from the same source column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyOverrides(base, tt.overrides, columns, targets)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
