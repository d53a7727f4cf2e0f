package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("not allowed to access this resource")
	ErrNotFound          = errors.New("requested resource not found")
	ErrUnknownUser       = errors.New("unknown user")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
// Forbidden maps to 401: callers that are authenticated but not a party to the
// resource get the same status as unauthenticated ones.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrDuplicateUsername) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrForbidden) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnknownUser) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the text that is safe to send back to a client.
// Internal failures are reduced to a generic message.
func PublicMessage(err error) string {
	if HTTPStatusFromError(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

// Invalid wraps ErrInvalidInput with a human-readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}
