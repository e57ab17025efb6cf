package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
// Every error response from the API has the same shape:
//
//	{"error": "conflict", "message": "Username is already taken"}
//
// so the frontend always knows what fields to expect, regardless of whether
// it's a 400, 401, 404, 409, or 500.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/startup-nation/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable type (e.g. "not_found")
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending field for validation errors
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body — once Encode writes,
// header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code.
//
// This is the single place domain errors (from the service layer) get
// translated to HTTP. Services return apperror sentinels; errors.Is walks
// the wrapped chain to find them. Unknown errors become a generic 500 —
// raw internal error text never reaches the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a JSON request body into dst, mapping malformed input to
// a validation error so the client sees a 400, not a 500.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}
