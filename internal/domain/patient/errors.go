package patient

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("patient not found")
	ErrConflict        = errors.New("patient ID already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorage         = errors.New("storage error")

	// ErrCollectionMissing is wrapped by a StorageError when the backing
	// resource has never been initialised.
	ErrCollectionMissing = errors.New("patient collection does not exist")
)

// FieldError describes one violated constraint on one field.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

// ValidationError collects every field constraint violated by an input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, constraint, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Constraint: constraint, Message: msg})
}

// orNil returns nil when no violation was recorded, so callers can build a
// ValidationError unconditionally and return it as a plain error.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Has reports whether a violation was recorded for field.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// StorageError reports that the persisted collection could not be read or
// written. It matches ErrStorage under errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func invalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// ArgumentMessage returns the human readable part of an ErrInvalidArgument.
func ArgumentMessage(err error) string {
	msg := err.Error()
	return strings.TrimPrefix(msg, ErrInvalidArgument.Error()+": ")
}

// Outcome classifies err into a short label for metrics.
func Outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidArgument):
		return "bad_argument"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "error"
	}
}
