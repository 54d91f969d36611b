package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sourcerer-app/sourcerer/internal/logger"
)

// Response is the envelope every endpoint returns. Exactly one of Data
// and Error is set.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error is the client-facing error body. Message is safe to display;
// internal failure detail stays in the server log.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Data: data}); err != nil {
		logger.Error(r.Context(), "Failed to encode response", "err", err)
	}
}

// respondError translates err into the envelope. Server-side failures
// log the cause and answer with a fixed message so internal detail
// never reaches the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := mapError(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "Request failed", "err", err, "path", r.URL.Path)
	}
	respondErrorCode(w, r, status, code, message)
}

func respondErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Error: &Error{Code: code, Message: message}}); err != nil {
		logger.Error(r.Context(), "Failed to encode error response", "err", err)
	}
}

// decodeJSON reads the request body into dst. Unknown fields are
// tolerated so older clients keep working across additive changes.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}
