package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested document does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller may not act on the document.
	ErrForbidden = errors.New("forbidden")
	// ErrUserBanned is returned for any write attempted by a banned user.
	ErrUserBanned = errors.New("user is banned")
	// ErrAlreadyProcessed is returned when a moderation decision loses the conditional update.
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrConflict covers unique constraint violations (duplicate report, second store, ...).
	ErrConflict = errors.New("conflict")
	// ErrInvalidState is returned when the document is not in a state that allows the action.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidCredentials is returned by Authenticate.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailExists is returned when registering an email that is already in use.
	ErrEmailExists = errors.New("email already in use by another account")
)

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// fieldError builds a ValidationError for a single field.
func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// IsValidationError unwraps err into a *ValidationError.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
