package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and the request id, then
// mapped through core.MapError to a stable code, a message and a suggested
// action. The HTTP status is derived from the error kind.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
	"github.com/JonMunkholm/pmobuilder/internal/match"
	"github.com/JonMunkholm/pmobuilder/internal/service"
	"github.com/JonMunkholm/pmobuilder/internal/store"
	"github.com/JonMunkholm/pmobuilder/internal/table"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Details []Detail `json:"details,omitempty"`
}

// Detail is one validation problem, for clients that highlight fields.
type Detail struct {
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

var errNoFile = errors.New("no file provided")

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	var parse *table.ParseError
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, table.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrTooManyConversions):
		return http.StatusServiceUnavailable
	case errors.Is(err, match.ErrScoring):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrIntegrity), errors.Is(err, core.ErrMissingSection):
		return http.StatusConflict
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrConfiguration),
		errors.Is(err, store.ErrInvalidID), errors.Is(err, errNoFile), errors.As(err, &parse):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", userMsg.Code,
		"error", err.Error(),
	)
	if status >= http.StatusInternalServerError {
		log.Error("request error")
	} else {
		log.Warn("request rejected")
	}

	if wantsJSON(r) {
		respondErrorJSON(w, err, userMsg, status)
	} else {
		respondErrorHTML(w, userMsg, status)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, err error, msg core.UserMessage, status int) {
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Details: details(err),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// respondErrorHTML writes a plain text error response.
func respondErrorHTML(w http.ResponseWriter, msg core.UserMessage, status int) {
	http.Error(w, msg.Message+" ("+msg.Code+")", status)
}

// details lists validation and integrity problems. Other errors carry none,
// so internal detail never reaches the client.
func details(err error) []Detail {
	var out []Detail

	var many core.ValidationErrors
	var one *core.ValidationError
	var integrity *core.IntegrityError
	var missing *core.MissingSectionError
	switch {
	case errors.As(err, &many):
		for _, e := range many {
			out = append(out, Detail{Line: e.Row, Field: e.Field, Value: e.Value, Message: e.Message})
		}
	case errors.As(err, &one):
		out = append(out, Detail{Line: one.Row, Field: one.Field, Value: one.Value, Message: one.Message})
	case errors.As(err, &integrity):
		for _, p := range integrity.Problems {
			out = append(out, Detail{Field: integrity.Section, Message: p})
		}
	case errors.As(err, &missing):
		for _, sec := range missing.Sections {
			out = append(out, Detail{Field: sec, Message: "section has not been built"})
		}
	}
	return out
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// writeDocument writes a fragment or document with the same indented
// encoding the CLI produces.
func writeDocument(w http.ResponseWriter, r *http.Request, v any) {
	data, err := core.Encode(v)
	if err != nil {
		logging.FromContext(r.Context()).Error("document encode error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
