package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Typed errors below match these with errors.Is.
var (
	// ErrUnauthorized means the caller supplied no user id.
	ErrUnauthorized = errors.New("unauthorized: user id is required")

	// ErrNotFound covers both "does not exist" and "belongs to another user".
	ErrNotFound = errors.New("not found")

	ErrDuplicateTemplate  = errors.New("duplicate template")
	ErrInvalidSchema      = errors.New("invalid field schema")
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrValidation is the class of custom-field validation failures
	// (missing field, type mismatch, invalid option).
	ErrValidation = errors.New("validation failed")

	ErrStorage = errors.New("storage error")
)

// NotFoundError is returned when an entity is absent or not owned by the
// requesting user. The message never includes the id so both cases render
// identically.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateTemplateError reports a template name already used by the user.
type DuplicateTemplateError struct {
	Name string
}

func (e *DuplicateTemplateError) Error() string {
	return fmt.Sprintf("template %q already exists", e.Name)
}

func (e *DuplicateTemplateError) Is(target error) bool { return target == ErrDuplicateTemplate }

// SchemaError reports a structurally invalid field descriptor.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "invalid field schema: " + e.Reason
	}
	return fmt.Sprintf("invalid field schema: field %q: %s", e.Field, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrInvalidSchema }

// TransactionError reports missing or malformed core transaction fields.
type TransactionError struct {
	Missing []string
	Reason  string
}

func (e *TransactionError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	return "invalid transaction: " + strings.Join(parts, "; ")
}

func (e *TransactionError) Is(target error) bool { return target == ErrInvalidTransaction }

// MissingFieldError reports a required custom field that is absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %q is required", e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrValidation }

// TypeMismatchError reports a value that does not parse as its declared type.
type TypeMismatchError struct {
	Field    string
	Expected FieldType
	Value    any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q: expected %s, got %v", e.Field, e.Expected, e.Value)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrValidation }

// InvalidOptionError reports a select value outside the allowed options.
type InvalidOptionError struct {
	Field   string
	Value   string
	Options []string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("field %q: %q is not one of [%s]", e.Field, e.Value, strings.Join(e.Options, ", "))
}

func (e *InvalidOptionError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps an underlying persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage error: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsRecoverable reports whether err is a validation-class error the caller can
// correct and resubmit.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidSchema) ||
		errors.Is(err, ErrInvalidTransaction)
}

// RequireUser is the isolation guard run at the top of every user-scoped
// entry point.
func RequireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUnauthorized
	}
	return nil
}
