// Package errors provides centralized error definitions for the audit service.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import (
	"errors"
	"fmt"
)

// Configuration errors. These abort an audit run at entry.
var (
	// ErrBadWordsUnavailable indicates the bad word source could not be read.
	ErrBadWordsUnavailable = errors.New("bad word list unavailable")

	// ErrEmptyBadWords indicates the bad word source returned no words.
	ErrEmptyBadWords = errors.New("bad word list is empty")

	// ErrInvalidItemType indicates an unknown audit item type argument.
	ErrInvalidItemType = errors.New("invalid item type")

	// ErrInvalidConfig indicates a configuration value out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Entity errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrSegmentNotFound indicates a segment could not be found.
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrAuditNotFound indicates an audit processor could not be found.
	ErrAuditNotFound = errors.New("audit processor not found")

	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
)

// Validation errors.
var (
	// ErrValidation is the root of every user-input validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateTitle indicates a custom target list title is already taken.
	ErrDuplicateTitle = errors.New("duplicate title")

	// ErrEmptySourceList indicates a source file produced no usable ids.
	ErrEmptySourceList = errors.New("empty source list")

	// ErrEmptyKeywordList indicates an inclusion or exclusion file produced no keywords.
	ErrEmptyKeywordList = errors.New("empty keyword list")

	// ErrInvalidThreshold indicates a score or hit threshold outside the accepted range.
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// Custom target list lifecycle errors.
var (
	// ErrVettingAttached indicates a list cannot be deleted while a vetting audit is attached.
	ErrVettingAttached = errors.New("vetting audit attached")

	// ErrExportMissing indicates a list has no materialized export yet.
	ErrExportMissing = errors.New("export not available")

	// ErrAuditStopped indicates the audit processor was stopped by an operator.
	ErrAuditStopped = errors.New("audit stopped")

	// ErrAuditPaused indicates the audit processor was paused by an operator.
	ErrAuditPaused = errors.New("audit paused")
)

// Concurrency errors.
var (
	// ErrLockHeld indicates another runner holds the single-run lock.
	ErrLockHeld = errors.New("lock held by another runner")

	// ErrWorkerFailed wraps the first worker failure of a master batch.
	ErrWorkerFailed = errors.New("worker failed")
)

// ValidationError describes a rejected user input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap exposes both ErrValidation and the specific cause.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}

	return []error{ErrValidation, e.Err}
}

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join is a convenience wrapper around errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
