package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrExecutionNotFound indicates no execution exists for the identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrStageNotFound indicates the execution has no stage with the id.
	ErrStageNotFound = errors.New("stage not found")

	// ErrTaskNotFound indicates the stage has no task with the id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDetachedStage indicates a stage write was attempted for a stage that
	// was never attached to an execution.
	ErrDetachedStage = errors.New("stage has no owning execution")
)

// ExecutionError wraps execution-related errors with operation context.
type ExecutionError struct {
	Op          string // Operation being performed (e.g., "Retrieve", "StoreStage")
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates a new execution error with context.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{
		Op:          op,
		ExecutionID: executionID,
		Err:         err,
	}
}

// IsExecutionNotFound checks if an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
