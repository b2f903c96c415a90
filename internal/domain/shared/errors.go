// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// External service errors. ErrExternalService means the upstream answered
	// and rejected the request; ErrTransport means we never got an answer.
	ErrExternalService = errors.New("external service error")
	ErrTransport       = errors.New("transport error")
	ErrTimeout         = errors.New("operation timeout")

	// Persistence errors
	ErrPersistence = errors.New("persistence error")

	// Internal errors
	ErrInternal = errors.New("internal error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "profile", "settings", "codeforces"
	Op      string // Operation that failed, e.g., "Create", "SyncAll"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Profile domain errors
var (
	ErrProfileNotFound      = NewDomainError("profile", "Find", ErrNotFound, "tracked profile not found")
	ErrProfileAlreadyExists = NewDomainError("profile", "Create", ErrAlreadyExists, "tracked profile already exists")
	ErrInvalidHandle        = NewDomainError("profile", "Validate", ErrInvalidInput, "invalid Codeforces handle")
	ErrInvalidEmail         = NewDomainError("profile", "Validate", ErrInvalidInput, "invalid email address")
)

// Settings domain errors
var (
	ErrSettingsNotFound    = NewDomainError("settings", "Find", ErrNotFound, "sync settings row not found")
	ErrInvalidCronSchedule = NewDomainError("settings", "Validate", ErrInvalidInput, "invalid cron schedule")
	ErrInvalidTimezone     = NewDomainError("settings", "Validate", ErrInvalidInput, "invalid timezone")
	ErrInvalidThreshold    = NewDomainError("settings", "Validate", ErrValueOutOfRange, "inactivity threshold must be at least 1 day")
	ErrInvalidSMTPPort     = NewDomainError("settings", "Validate", ErrValueOutOfRange, "SMTP port out of range")
)

// External service errors
var (
	ErrCodeforcesRejected        = NewDomainError("codeforces", "Request", ErrExternalService, "Codeforces API rejected the request")
	ErrCodeforcesUnreachable     = NewDomainError("codeforces", "Request", ErrTransport, "Codeforces API is unreachable")
	ErrCodeforcesInvalidResponse = NewDomainError("codeforces", "Parse", ErrInvalidFormat, "invalid response from Codeforces API")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the upstream answered with an error.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService)
}

// IsTransport checks if the upstream could not be reached at all.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrTimeout)
}

// IsPersistence checks if the error came from the storage layer.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
