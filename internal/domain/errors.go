package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("operation already in progress")
	ErrBackend    = errors.New("backend failure")
)

// ValidationError is a client-detectable precondition failure. It never
// reaches the store.
type ValidationError struct {
	Reason  string
	Missing []string
}

func NewMissingDocumentsError(missing []string) *ValidationError {
	return &ValidationError{
		Reason:  "registration is not fully verified",
		Missing: missing,
	}
}

func (e *ValidationError) Error() string {
	if len(e.Missing) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: missing %s", e.Reason, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("registration %q has a pending update, please wait", e.ID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// BackendError wraps any store or I/O failure.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }
