package models

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError reports a missing or invalid caller-supplied field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports that a referenced entity does not exist in the catalog.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// NewNotFoundError returns a *NotFoundError for the given entity and id.
func NewNotFoundError(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// TransientBackendError wraps a retryable failure of the search index,
// such as an unreachable endpoint or an operation timeout.
type TransientBackendError struct {
	Op  string
	Err error
}

func (e *TransientBackendError) Error() string {
	return fmt.Sprintf("search index %s: %v", e.Op, e.Err)
}

func (e *TransientBackendError) Unwrap() error {
	return e.Err
}

// NewTransientBackendError wraps err unless it already is a
// *TransientBackendError, in which case it is returned unchanged.
func NewTransientBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransientBackendError
	if errors.As(err, &te) {
		return err
	}
	return &TransientBackendError{Op: op, Err: err}
}

// FatalConfigError reports that a component could not be set up at startup.
// A process that receives one must not begin serving search.
type FatalConfigError struct {
	Component string
	Err       error
}

func (e *FatalConfigError) Error() string {
	return fmt.Sprintf("fatal configuration error in %s: %v", e.Component, e.Err)
}

func (e *FatalConfigError) Unwrap() error {
	return e.Err
}

// NewFatalConfigError wraps err as a *FatalConfigError.
func NewFatalConfigError(component string, err error) error {
	return &FatalConfigError{Component: component, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsTransient reports whether err is a retryable backend failure.
// Context deadline errors count as transient even when unwrapped.
func IsTransient(err error) bool {
	var target *TransientBackendError
	if errors.As(err, &target) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func IsFatalConfig(err error) bool {
	var target *FatalConfigError
	return errors.As(err, &target)
}
