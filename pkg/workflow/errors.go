package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/gradflow/pkg/rules"
)

// Errors returned by the engine. Every engine error wraps exactly one of them.
var (
	// ErrNotFound indicates the record or step does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration indicates the record is in a state the rule table does not declare.
	ErrConfiguration = errors.New("workflow configuration error")

	// ErrInvalidTransition indicates the action is not available in the current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPermissionDenied indicates the caller may not run the action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation indicates the submission broke a declared field rule.
	ErrValidation = errors.New("invalid submission")
)

// Error wraps engine errors with the context of the failed operation.
type Error struct {
	Op       string // Operation being performed (e.g., "ExecuteAction", "GetOne")
	RecordID int64  // Record ID if applicable
	Key      string // Action key if applicable
	State    string // Working state if applicable
	Message  string // Human-readable message
	Err      error  // Underlying error

	// Details lists the failed fields of an ErrValidation.
	Details []rules.FieldError
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsNotFound checks if an error indicates a missing record or step.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfiguration checks if an error indicates an inconsistent rule table or record state.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsInvalidTransition checks if an error indicates an action unavailable in the current state.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsPermissionDenied checks if an error indicates the caller lacks permission.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsValidation checks if an error indicates an invalid submission.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRejection reports whether err is a domain rejection rather than an internal fault.
func IsRejection(err error) bool {
	return IsNotFound(err) ||
		IsConfiguration(err) ||
		IsInvalidTransition(err) ||
		IsPermissionDenied(err) ||
		IsValidation(err)
}
