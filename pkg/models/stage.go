package models

// StageExecution is a named unit of work within an execution, comprising one
// or more tasks. RefID is the pipeline-author-assigned ordering key.
type StageExecution struct {
	ID      string           `json:"id"`
	RefID   string           `json:"refId"`
	Type    string           `json:"type"`
	Name    string           `json:"name,omitempty"`
	Status  ExecutionStatus  `json:"status"`
	Context map[string]any   `json:"context,omitempty"`
	Tasks   []*TaskExecution `json:"tasks,omitempty"`

	// Size is the byte length of the stage's serialized body as stored.
	Size int64 `json:"-"`

	// Back-reference to the owning execution, set when the stage is attached
	// during mapping. Never serialized; the store keeps the relation in an
	// execution_id column instead.
	execution *PipelineExecution
}

// Execution returns the owning execution, or nil for a detached stage.
func (s *StageExecution) Execution() *PipelineExecution {
	return s.execution
}

// TaskByID returns the task with the given id.
func (s *StageExecution) TaskByID(id string) (*TaskExecution, bool) {
	for _, task := range s.Tasks {
		if task.ID == id {
			return task, true
		}
	}

	return nil, false
}

// NextTask returns the task following the given one in declaration order,
// or nil if it is the last.
func (s *StageExecution) NextTask(after *TaskExecution) *TaskExecution {
	for i, task := range s.Tasks {
		if task.ID == after.ID && i+1 < len(s.Tasks) {
			return s.Tasks[i+1]
		}
	}

	return nil
}
