// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRecordNotFound indicates a record was not found by the given identifier.
	ErrRecordNotFound = errors.New("record not found")

	// ErrStepNotFound indicates a step was not found by the given identifier.
	ErrStepNotFound = errors.New("step not found")

	// ErrInvalidRecord indicates a record or step is missing data required to store it.
	ErrInvalidRecord = errors.New("invalid record")
)

// RecordError wraps record-related errors with additional context.
type RecordError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Transition")
	RecordID int64  // Record ID if applicable
	Err      error  // Underlying error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for record %d: %v", e.Op, e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRecordError creates a new record error with context.
func NewRecordError(op string, recordID int64, err error) *RecordError {
	return &RecordError{
		Op:       op,
		RecordID: recordID,
		Err:      err,
	}
}

// StepError wraps step-related errors with additional context.
type StepError struct {
	Op     string
	StepID int64
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s operation failed for step %d: %v", e.Op, e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStepError creates a new step error with context.
func NewStepError(op string, stepID int64, err error) *StepError {
	return &StepError{
		Op:     op,
		StepID: stepID,
		Err:    err,
	}
}

// IsRecordNotFound checks if an error indicates a record was not found.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsStepNotFound checks if an error indicates a step was not found.
func IsStepNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound)
}
