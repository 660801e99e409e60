package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrAutomationNotFound indicates no automation matches the given
	// identifier or name.
	ErrAutomationNotFound = errors.New("automation not found")

	// ErrAutomationInvalid indicates a definition that cannot be stored.
	ErrAutomationInvalid = errors.New("automation definition invalid")

	// ErrExecutionNotFound indicates no execution record matches the query.
	ErrExecutionNotFound = errors.New("execution record not found")
)

// AutomationError wraps automation storage errors with operation context.
type AutomationError struct {
	Op           string
	AutomationID string
	Err          error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("%s operation failed for automation %s: %v", e.Op, e.AutomationID, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

func (e *AutomationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAutomationError creates an automation error with context.
func NewAutomationError(op, automationID string, err error) *AutomationError {
	return &AutomationError{
		Op:           op,
		AutomationID: automationID,
		Err:          err,
	}
}

// IsAutomationNotFound checks whether an error indicates a missing
// automation.
func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}

// IsExecutionNotFound checks whether an error indicates a missing execution
// record.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
