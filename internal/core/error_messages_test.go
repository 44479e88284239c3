package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/pmobuilder/internal/table"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"missing credential", &ConfigurationError{Setting: "api_key", Message: "required"}, "CFG002"},
		{"unknown method", NewConfigurationError("method", "unknown matching method"), "CFG001"},
		{"empty panel id", NewValidationError(FieldPanelID, "", "required identifier must not be empty"), "VAL001"},
		{"blank genome field", NewValidationError("genome_info.url", "", "required field is empty"), "VAL002"},
		{"missing column", NewValidationError("depth", "", "missing column in source table"), "VAL003"},
		{"unmapped field", NewValidationError(FieldLocus, "", "required field is not mapped to a column"), "VAL004"},
		{"duplicate claims", NewValidationError("locus, asv", "target", "mapped from the same source column"), "VAL005"},
		{"bad read count", NewValidationError(FieldReads, "x", "invalid integer"), "VAL006"},
		{"duplicate target", NewValidationError(FieldTargetID, "T1", "duplicate target id"), "VAL007"},
		{"collected errors use first match", ValidationErrors{NewValidationError("a", "", "something odd")}, "VAL000"},
		{"wrapped validation error", fmt.Errorf("build panel: %w", NewValidationError(FieldPanelID, "", "required identifier must not be empty")), "VAL001"},
		{"integrity", &IntegrityError{Section: "microhaplotypes_detected", Problems: []string{"x"}}, "INT001"},
		{"missing section", &MissingSectionError{Sections: []string{"specimen"}}, "DOC001"},
		{"parse error", &table.ParseError{Line: 3, Message: "bare quote"}, "FILE002"},
		{"empty table", &table.ParseError{Message: "empty table: no header row"}, "FILE003"},
		{"too large", fmt.Errorf("%w: limit is 10 bytes", table.ErrTooLarge), "FILE001"},
		{"scoring failure", errors.New("semantic scoring failed: context deadline exceeded"), "MAT001"},
		{"store miss", errors.New("load P1: panel not found"), "STO001"},
		{"deadline", context.DeadlineExceeded, "UPL005"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q (%v)", got.Code, tt.wantCode, tt.err)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned an empty message")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := &MissingSectionError{Sections: []string{"specimen"}}
	result := FormatUserError(err)

	expected := "Some sections have not been built yet (Code: DOC001). Build the reported sections, then merge again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"typed error is user facing", &IntegrityError{Section: "x"}, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := &MissingSectionError{Sections: []string{"panel"}}
		userErr := NewUserError(techErr)

		if userErr.Error() != "Some sections have not been built yet" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrMissingSection) {
			t.Error("Unwrap() should expose the original error")
		}
	})
}
