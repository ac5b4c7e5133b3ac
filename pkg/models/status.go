package models

// ExecutionType discriminates the two kinds of executions the core runs.
type ExecutionType string

const (
	Pipeline      ExecutionType = "PIPELINE"
	Orchestration ExecutionType = "ORCHESTRATION"
)

// ExecutionStatus is the lifecycle status shared by executions, stages and tasks.
type ExecutionStatus string

const (
	StatusNotStarted ExecutionStatus = "NOT_STARTED"
	StatusRunning    ExecutionStatus = "RUNNING"
	StatusSucceeded  ExecutionStatus = "SUCCEEDED"
	StatusSkipped    ExecutionStatus = "SKIPPED"
	StatusFailed     ExecutionStatus = "FAILED"
	StatusCanceled   ExecutionStatus = "CANCELED"
)

// IsComplete reports whether the status is terminal. A complete task is
// immutable; handlers must never transition it again.
func (s ExecutionStatus) IsComplete() bool {
	switch s {
	case StatusSucceeded, StatusSkipped, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// IsHalt reports whether the status stops downstream work in the stage.
func (s ExecutionStatus) IsHalt() bool {
	return s == StatusFailed || s == StatusCanceled
}
