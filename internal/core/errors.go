package core

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes domain errors for caller dispatch.
type ErrorCode string

const (
	// ErrCodeValidation indicates the input violates a domain invariant.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound indicates a referenced entity does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeConflict indicates a lost concurrent status race.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeConfiguration indicates inconsistent shop-floor configuration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
)

// Error is the structured error surfaced by every floorline component.
//
// Entity/EntityID identify the subject where one exists (cell, operation,
// part, job, record, segment). Details carries additional context for
// diagnostics.
type Error struct {
	Code     ErrorCode
	Message  string
	Entity   string
	EntityID string
	Details  map[string]string

	// Cause is the wrapped internal error, if any. Store connectivity
	// failures are wrapped here, never leaked verbatim in Message.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Entity != "" && e.EntityID != "" {
		return fmt.Sprintf("%s: %s (%s=%s)", e.Code, e.Message, e.Entity, e.EntityID)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the internal cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{Code: ErrCodeValidation, Message: message}
}

// NewNotFoundError creates a not-found error for an entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s not found", entity),
		Entity:   entity,
		EntityID: id,
	}
}

// NewConflictError creates a conflict error for a lost status race.
func NewConflictError(entity, id, message string) *Error {
	return &Error{
		Code:     ErrCodeConflict,
		Message:  message,
		Entity:   entity,
		EntityID: id,
	}
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: message}
}

func is(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsValidation reports whether err is a validation error.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool { return is(err, ErrCodeValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return is(err, ErrCodeNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return is(err, ErrCodeConflict) }

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return is(err, ErrCodeConfiguration) }
