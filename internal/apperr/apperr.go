// Package apperr defines the failure kinds shared by the record store and the
// request-handling layers. Callers match them with errors.Is.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrNotFound means no row matched the id or email.
	ErrNotFound = errors.New("not found")
	// ErrConstraint means a unique constraint on username or email was violated.
	ErrConstraint = errors.New("constraint violation")
	// ErrValidation means the input was malformed or empty.
	ErrValidation = errors.New("validation failure")
	// ErrUnauthorized means the supplied credentials did not match.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStorageUnavailable wraps I/O and connectivity failures of the store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrExternalService means the suggestion service failed or timed out.
	ErrExternalService = errors.New("external service failure")
)

// Status maps an error to the HTTP status used by the façade.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConstraint):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the short user-facing text for err. Validation errors keep
// their detail, which only ever describes the input. Other causes are dropped
// so that no stored value leaks.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "user not found"
	case errors.Is(err, ErrConstraint):
		return "username or email already exists"
	case errors.Is(err, ErrValidation):
		if _, detail, ok := strings.Cut(err.Error(), ErrValidation.Error()+": "); ok && detail != "" {
			return detail
		}
		return "invalid input"
	case errors.Is(err, ErrUnauthorized):
		return "invalid credentials"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage unavailable"
	case errors.Is(err, ErrExternalService):
		return "suggestion service unavailable"
	default:
		return "internal error"
	}
}
