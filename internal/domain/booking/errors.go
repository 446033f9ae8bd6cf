package booking

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError for callers that need to map it (HTTP status, UI message).
type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidState      ErrorCode = "INVALID_STATE"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeOutOfRange        ErrorCode = "OUT_OF_RANGE"
	CodePermissionDenied  ErrorCode = "LOCATION_PERMISSION_DENIED"
	CodeTermsNotAccepted  ErrorCode = "TERMS_NOT_ACCEPTED"
	CodeIncompleteBooking ErrorCode = "INCOMPLETE_BOOKING"
)

// DomainError is the error type surfaced by the booking domain.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is reports a match on error code, so errors.Is(err, ErrOutOfRange) holds for any
// out-of-range error regardless of its message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	// ErrOutOfRange is returned when a selected coordinate lies outside the service area.
	ErrOutOfRange = &DomainError{Code: CodeOutOfRange, Message: "selected location is outside the service area"}

	// ErrLocationPermissionDenied is returned when the device position cannot be obtained.
	ErrLocationPermissionDenied = &DomainError{Code: CodePermissionDenied, Message: "location permission denied or unavailable"}

	// ErrTermsNotAccepted is returned when a booking is finalized without consent.
	ErrTermsNotAccepted = &DomainError{Code: CodeTermsNotAccepted, Message: "terms and conditions must be accepted"}

	// ErrIncompleteBooking is returned when pickup, dropoff or distance is missing at finalize.
	ErrIncompleteBooking = &DomainError{Code: CodeIncompleteBooking, Message: "pickup, dropoff and distance are required"}
)

// NewValidationError creates a validation error with the given message.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: msg}
}

// NewNotFoundError creates a not-found error for the given entity and key.
func NewNotFoundError(entity, key string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", entity, key)}
}

// NewInvalidStateError creates an error for a disallowed state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Code: CodeInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewConflictError creates a concurrency conflict error.
func NewConflictError(msg string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: msg}
}

// CodeOf extracts the ErrorCode of err, or "" when err is not a DomainError.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
