package api

import (
	"errors"
	"net/http"

	"github.com/sourcerer-app/sourcerer/internal/llm"
	"github.com/sourcerer-app/sourcerer/internal/settings"
)

// Stable error codes carried in the response envelope. Clients branch
// on these, never on message text.
const (
	codeBadRequest    = "bad_request"
	codeValidation    = "validation_error"
	codeNotFound      = "not_found"
	codeAlreadyExists = "already_exists"
	codeLockTimeout   = "lock_timeout"
	codeUnauthorized  = "unauthorized"
	codeProbeFailed   = "probe_failed"
	codeCorruptConfig = "corrupt_config"
	codeMigration     = "migration_failed"
	codeDecryption    = "decryption_failed"
	codeIO            = "io_error"
	codeInternal      = "internal_error"
)

// mapError resolves a store or probe error chain to a status, a stable
// code, and a client-safe message. Client errors echo the error text;
// server errors answer with fixed messages.
func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, settings.ErrValidation):
		return http.StatusBadRequest, codeValidation, err.Error()
	case errors.Is(err, settings.ErrNotFound):
		return http.StatusNotFound, codeNotFound, err.Error()
	case errors.Is(err, settings.ErrExists):
		return http.StatusConflict, codeAlreadyExists, err.Error()
	case errors.Is(err, settings.ErrLockTimeout):
		return http.StatusConflict, codeLockTimeout, "another process holds the configuration lock"
	case errors.Is(err, llm.ErrUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized, "provider rejected the credentials"
	case errors.Is(err, settings.ErrMigration):
		return http.StatusInternalServerError, codeMigration, "configuration migration failed"
	case errors.Is(err, settings.ErrCorruptConfig):
		return http.StatusInternalServerError, codeCorruptConfig, "configuration document is corrupt"
	case errors.Is(err, settings.ErrDecryption):
		return http.StatusInternalServerError, codeDecryption, "secret store could not be decrypted"
	case errors.Is(err, settings.ErrIO):
		return http.StatusInternalServerError, codeIO, "configuration storage failed"
	default:
		return http.StatusInternalServerError, codeInternal, "internal error"
	}
}
