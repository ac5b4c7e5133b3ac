package models

// TaskExecution is the smallest unit of executable work within a stage. The
// implementing class names the registered task capability that runs it.
type TaskExecution struct {
	ID                string          `json:"id"`
	Name              string          `json:"name,omitempty"`
	ImplementingClass string          `json:"implementingClass,omitempty"`
	Status            ExecutionStatus `json:"status"`

	// Epoch millis, present only once the task has reached that point in its
	// lifecycle. A SKIPPED task never gets a StartTime.
	StartTime *int64 `json:"startTime,omitempty"`
	EndTime   *int64 `json:"endTime,omitempty"`
}
