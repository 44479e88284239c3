package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched by errors.Is against the typed errors below.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrValidation     = errors.New("validation error")
	ErrIntegrity      = errors.New("integrity error")
	ErrMissingSection = errors.New("missing section")
)

// ConfigurationError reports an invalid strategy selection or a missing
// credential. It is raised before any work is attempted.
type ConfigurationError struct {
	Setting string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Setting != "" {
		msg += " in " + e.Setting
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError creates a ConfigurationError without a cause.
func NewConfigurationError(setting, message string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Message: message}
}

// ValidationError represents a single validation problem with user input.
// Row is the 1-based line in the source table, or 0 when not row specific.
type ValidationError struct {
	Field   string // Field, column or identifier name
	Value   string // The offending value, if any
	Row     int
	Message string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Row)
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (got %q)", e.Value)
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ValidationErrors collects every problem found in one pass so the caller
// can fix them all before resubmitting.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return v[0].Error()
	}
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(v), strings.Join(parts, "; "))
}

func (v ValidationErrors) Is(target error) bool { return target == ErrValidation }

// Add appends a new problem.
func (v *ValidationErrors) Add(row int, field, value, message string) {
	*v = append(*v, &ValidationError{Field: field, Value: value, Row: row, Message: message})
}

// Err returns nil when no problems were collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Fields returns the distinct field names in collection order.
func (v ValidationErrors) Fields() []string {
	seen := make(map[string]bool, len(v))
	var out []string
	for _, e := range v {
		if e.Field != "" && !seen[e.Field] {
			seen[e.Field] = true
			out = append(out, e.Field)
		}
	}
	return out
}

// IntegrityError reports data that cannot be cross-referenced, such as a
// detected sequence without exactly one representative id.
type IntegrityError struct {
	Section  string
	Problems []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error in %s: %s", e.Section, strings.Join(e.Problems, "; "))
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// MissingSectionError is returned by assembly when required sections are absent.
type MissingSectionError struct {
	Sections []string
}

func (e *MissingSectionError) Error() string {
	return "missing required sections: " + strings.Join(e.Sections, ", ")
}

func (e *MissingSectionError) Is(target error) bool { return target == ErrMissingSection }
