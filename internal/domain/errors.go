package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrStorage       = errors.New("storage error")
	ErrAssetIO       = errors.New("asset io error")
	ErrPartialWrite  = errors.New("partial write")
	ErrEmptyAsset    = errors.New("asset file is empty")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// StorageError reports a failed store or snapshot operation. A run that hits
// one before Applying performs no mutation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStorage and the underlying cause.
func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// NewStorageError wraps err as a StorageError for the given operation.
// A nil err yields nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// AssetIOError reports an asset file that could not be listed, read or copied.
type AssetIOError struct {
	Category string
	Filename string
	Err      error
}

func (e *AssetIOError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("asset %s: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("asset %s/%s: %v", e.Category, e.Filename, e.Err)
}

func (e *AssetIOError) Unwrap() []error { return []error{ErrAssetIO, e.Err} }

// PartialWriteError reports a bulk write that touched fewer rows than it was
// asked to. Handle points at the snapshot taken before the run started.
type PartialWriteError struct {
	Op        string
	Requested int
	Modified  int
	Handle    SnapshotHandle
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: %s modified %d of %d (restore from snapshot %s)",
		e.Op, e.Modified, e.Requested, e.Handle)
}

func (e *PartialWriteError) Unwrap() error { return ErrPartialWrite }
