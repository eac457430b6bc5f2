package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed input; nothing was applied.
	ErrValidation = errors.New("validation failed")
	// ErrAuthorization indicates the caller's rank or scope does not cover the target.
	ErrAuthorization = errors.New("not authorized")
	// ErrForbidden indicates the target entity is structurally protected.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConsistency indicates a mutation could not be recorded and was rolled back.
	ErrConsistency = errors.New("consistency violation")
	// ErrUnauthenticated indicates the request carries no usable session.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error is a classified domain error with a message safe to show to callers.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Validation builds an ErrValidation error.
func Validation(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

// ValidationFields builds an ErrValidation error carrying per-field messages.
func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: message, Fields: fields}
}

// Unauthorized builds an ErrAuthorization error.
func Unauthorized(message string) *Error {
	return &Error{Kind: ErrAuthorization, Message: message}
}

// Forbidden builds an ErrForbidden error.
func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// NotFound builds an ErrNotFound error.
func NotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// Consistency wraps a failed audit write so callers can tell it apart from storage noise.
func Consistency(err error) error {
	return fmt.Errorf("%w: %w", ErrConsistency, err)
}

// UserSafeMessage returns a message that can be echoed to clients.
func UserSafeMessage(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "Resource not found"
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthenticated"
	case errors.Is(err, ErrValidation):
		return "The given data was invalid"
	case errors.Is(err, ErrAuthorization), errors.Is(err, ErrForbidden):
		return "This action is unauthorized"
	default:
		return "Something went wrong"
	}
}
