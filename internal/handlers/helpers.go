package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/exchange"
	"github.com/bobmcallan/storage-inspector/internal/models"
)

// PartialHeader is set on responses served from a snapshot where some
// storage areas could not be read.
const PartialHeader = "X-Storage-Partial"

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// StatusForError maps the model's sentinel errors onto HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, models.ErrUnsupported),
		errors.Is(err, exchange.ErrMalformedDocument),
		errors.Is(err, exchange.ErrMissingName):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnreachable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeFailure logs err and writes it with its mapped status.
func writeFailure(w http.ResponseWriter, logger *common.Logger, op string, err error) {
	status := StatusForError(err)
	if logger != nil {
		ev := logger.Warn()
		if status >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.Str("op", op).Int("status", status).Err(err).Msg("request failed")
	}
	WriteError(w, status, err.Error())
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
