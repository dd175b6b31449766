package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCategory = errors.New("unknown category")
	ErrEmptyContent    = errors.New("content is required")
)

// ValidationError reports input rejected before any write happened.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return e.Err }

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// WrapValidationError reports err as a validation failure of field.
func WrapValidationError(field string, err error) ValidationError {
	return ValidationError{Field: field, Message: err.Error(), Err: err}
}

// IsValidationError checks if an error is a validation error (including wrapped errors).
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports a lookup or update of an id the subject does not own.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("memory not found: %s", e.ID)
}

// IsNotFound checks if err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// Storage operation classes.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// StorageError wraps an I/O failure against the backing storage.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageWrite reports whether err is a failed persist. Callers must treat
// it as data not saved.
func IsStorageWrite(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == OpWrite
}

// IsStorageRead reports whether err is a failed read of the backing storage.
func IsStorageRead(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == OpRead
}
