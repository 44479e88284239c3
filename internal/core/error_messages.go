package core

// # Error Codes Reference
//
// User facing errors carry a code so users can quote it when asking for help.
// Typed errors are mapped first; everything else falls back to
// case-insensitive pattern matching on the error text.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Matching is not configured correctly (unknown method or assignment)
//	CFG002 - Missing credential for the semantic matching method
//
// # Validation Errors (VAL000-VAL099)
//
//	VAL001 - Required identifier is empty ("must not be empty")
//	VAL002 - Required cell is empty ("required field is empty")
//	VAL003 - Mapped or additional column missing from the table ("missing column")
//	VAL004 - Required schema field is not mapped ("is not mapped")
//	VAL005 - Two fields mapped from the same column ("same source column")
//	VAL006 - Cell is not an integer ("invalid integer")
//	VAL007 - Duplicate key ("duplicate")
//	VAL000 - Any other validation failure
//
// # Document Errors
//
//	INT001 - Cross references do not resolve (integrity error)
//	DOC001 - Assembly attempted without every section
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Table exceeds the size limit ("table too large")
//	FILE002 - Table could not be parsed
//	FILE003 - Table has no header row ("no header")
//	FILE004 - No file was uploaded ("no file provided")
//
// # Other Errors
//
//	MAT001 - Semantic scoring service failed ("scoring failed")
//	STO001 - Saved panel not found ("panel not found")
//	STO002 - Panel id cannot be used as a storage key ("invalid panel id")
//	SES001 - Session expired or unknown ("session not found")
//	UPL002 - Too many conversions in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//	ERR000 - Anything else; check the logs for the technical error

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/pmobuilder/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// validationPatterns refine ErrValidation. First match wins.
var validationPatterns = []errorPattern{
	{"must not be empty", UserMessage{
		Message: "A required identifier is empty",
		Action:  "Enter the panel or bioinformatics run id and resubmit",
		Code:    "VAL001",
	}},
	{"required field is empty", UserMessage{
		Message: "A required value is empty",
		Action:  "Fill in the reported cells or genome fields and resubmit",
		Code:    "VAL002",
	}},
	{"missing column", UserMessage{
		Message: "A column is missing from the table",
		Action:  "Check the column names in the mapping and the additional columns",
		Code:    "VAL003",
	}},
	{"is not mapped", UserMessage{
		Message: "A required field has no column",
		Action:  "Choose a source column for every required field",
		Code:    "VAL004",
	}},
	{"same source column", UserMessage{
		Message: "Several fields use the same column",
		Action:  "Give each field its own column",
		Code:    "VAL005",
	}},
	{"invalid integer", UserMessage{
		Message: "A numeric cell is not a whole number",
		Action:  "Use whole numbers for read counts and coordinates",
		Code:    "VAL006",
	}},
	{"duplicate", UserMessage{
		Message: "An identifier appears more than once",
		Action:  "Make the reported ids unique",
		Code:    "VAL007",
	}},
}

var validationDefault = UserMessage{
	Message: "The input is not valid",
	Action:  "Review the reported fields and resubmit",
	Code:    "VAL000",
}

// errorPatterns maps untyped error text to user messages. First match wins.
var errorPatterns = []errorPattern{
	{"scoring failed", UserMessage{
		Message: "The semantic matching service failed",
		Action:  "Retry, or switch to the fuzzy matching method",
		Code:    "MAT001",
	}},
	{"table too large", UserMessage{
		Message: "The table exceeds the maximum size",
		Action:  "Split the table into smaller files",
		Code:    "FILE001",
	}},
	{"no header", UserMessage{
		Message: "The table is empty",
		Action:  "Upload a tab-delimited file with a header row",
		Code:    "FILE003",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Select a tab-delimited file to upload",
		Code:    "FILE004",
	}},
	{"panel not found", UserMessage{
		Message: "Saved panel not found",
		Action:  "Check the panel id or build the panel again",
		Code:    "STO001",
	}},
	{"invalid panel id", UserMessage{
		Message: "The panel id cannot be stored",
		Action:  "Use letters, digits, dot, dash or underscore in panel ids",
		Code:    "STO002",
	}},
	{"session not found", UserMessage{
		Message: "Session not found",
		Action:  "The session may have expired. Start a new one",
		Code:    "SES001",
	}},
	{"too many concurrent conversions", UserMessage{
		Message: "The system is busy with other conversions",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller table or try again later",
		Code:    "UPL005",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
//	msg := MapError(&MissingSectionError{Sections: []string{"specimen"}})
//	// msg.Code == "DOC001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var cfg *ConfigurationError
	var parse *table.ParseError

	switch {
	case errors.As(err, &cfg):
		if cfg.Setting == "api_key" {
			return UserMessage{
				Message: "The semantic matching method needs an API key",
				Action:  "Provide an API key or use the fuzzy method",
				Code:    "CFG002",
			}
		}
		return UserMessage{
			Message: "Matching is not configured correctly",
			Action:  "Choose a supported matching method and assignment",
			Code:    "CFG001",
		}
	case errors.Is(err, ErrValidation):
		return matchPattern(err, validationPatterns, validationDefault)
	case errors.Is(err, ErrIntegrity):
		return UserMessage{
			Message: "The data does not cross-reference consistently",
			Action:  "Review the reported ids in the source tables",
			Code:    "INT001",
		}
	case errors.Is(err, ErrMissingSection):
		return UserMessage{
			Message: "Some sections have not been built yet",
			Action:  "Build the reported sections, then merge again",
			Code:    "DOC001",
		}
	case errors.As(err, &parse):
		if strings.Contains(parse.Message, "no header") {
			return matchPattern(err, errorPatterns, defaultMessage)
		}
		return UserMessage{
			Message: "The table could not be read",
			Action:  "Save the file as tab-delimited UTF-8 text",
			Code:    "FILE002",
		}
	}

	return matchPattern(err, errorPatterns, defaultMessage)
}

func matchPattern(err error, patterns []errorPattern, fallback UserMessage) UserMessage {
	errStr := strings.ToLower(err.Error())
	for _, ep := range patterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return fallback
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
