package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFoundOrDenied covers both a missing record and one the caller may not
// touch, so callers cannot probe for the existence of other users' cases.
var ErrNotFoundOrDenied = errors.New("not found or access denied")

// FieldError is one violated rule of an input payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field problem of a payload
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field problem
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no problem was collected
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a ValidationError holding a single field problem
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// ConflictError reports a unique constraint violation. Retrying with fresh
// state may succeed.
type ConflictError struct {
	Resource string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflicts with an existing record", e.Resource)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// DependencyError wraps a failure of an external collaborator
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// IsConflict reports whether err is a retryable conflict
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// isUniqueViolation recognises unique index violations from either driver.
// TranslateError covers sqlite and postgres; the message check catches
// connections opened without it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}

// notFoundOrDenied maps a missing row to ErrNotFoundOrDenied and wraps anything else
func notFoundOrDenied(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFoundOrDenied
	}
	return fmt.Errorf("%s: %w", action, err)
}
