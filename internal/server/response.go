package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/model"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/settings"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorWithDetails(w, status, code, message, nil)
}

// writeErrorWithDetails writes an error response with details.
func writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeSuccess writes a success response.
func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeDomainError maps the sentinel errors of the core packages to a status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrModNotFound),
		errors.Is(err, model.ErrBlockNotFound),
		errors.Is(err, settings.ErrUnknownBlock),
		errors.Is(err, settings.ErrUnknownPreset):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case isInvalid(err):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}

var invalidErrors = []error{
	document.ErrMalformed,
	settings.ErrInvalidValue,
	settings.ErrOutOfRange,
	settings.ErrEmptyPresetName,
	model.ErrIDEmpty,
	model.ErrIDInvalidChars,
	model.ErrIDLeadingDigit,
	model.ErrIDEdgeUnderscore,
	model.ErrIDDoubleUnderscore,
	model.ErrIDDuplicate,
	model.ErrIDCaseConflict,
}

func isInvalid(err error) bool {
	for _, target := range invalidErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
