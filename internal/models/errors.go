package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// ErrDependencyNotReady signals that a proposal pipeline reached a
	// criteria-dependent step while its referenced RFP pipeline was not yet
	// completed. Structural, not transient.
	ErrDependencyNotReady = errors.New("referenced pipeline is not completed")
)

// ErrorCategory classifies failures for retry decisions.
type ErrorCategory string

const (
	CategoryNetwork           ErrorCategory = "network"
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryRateLimit         ErrorCategory = "rate_limit"
	CategoryMalformedResponse ErrorCategory = "malformed_response"
	CategoryValidation        ErrorCategory = "validation"
	CategoryDependency        ErrorCategory = "dependency"
	CategoryUnknown           ErrorCategory = "unknown"
)

// CategorizedError tags an underlying error with a retry category. Providers
// wrap their failures with Categorize so the retry policy can classify them
// without knowing provider internals.
type CategorizedError struct {
	Category ErrorCategory
	Err      error
}

func (e *CategorizedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// Categorize wraps err with the given category. A nil err returns nil.
func Categorize(category ErrorCategory, err error) error {
	if err == nil {
		return nil
	}
	return &CategorizedError{Category: category, Err: err}
}

// StepError is the typed failure of one pipeline step.
type StepError struct {
	Step     string
	Category ErrorCategory
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed (%s): %v", e.Step, e.Category, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// NewStepError wraps err as a StepError for the named step, inferring the
// category from the error chain when none was assigned yet.
func NewStepError(step string, err error) *StepError {
	return &StepError{Step: step, Category: CategoryOf(err), Err: err}
}

// CategoryOf walks the error chain and returns the first category it finds.
// Deadline expiry maps to the timeout category, dependency and validation
// sentinels to their structural categories, anything else is unknown.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.Category
	}
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if errors.Is(err, ErrDependencyNotReady) {
		return CategoryDependency
	}
	if errors.Is(err, ErrValidation) {
		return CategoryValidation
	}
	return CategoryUnknown
}
