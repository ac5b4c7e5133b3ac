// Package protocol defines the contracts between the execution core and the
// pluggable task and stage implementations it orchestrates. Concrete
// cloud-provider tasks live outside this module and are registered at
// process start.
package protocol

import (
	"context"
	"fmt"

	"github.com/edgarulg/orca/pkg/models"
)

// TaskResult is what a task implementation reports back to the state
// machine. Context and Outputs are merged into the owning stage's context.
type TaskResult struct {
	Status  models.ExecutionStatus
	Context map[string]any
	Outputs map[string]any
}

// Capabilities describes how the state machine may treat a task.
type Capabilities struct {
	// Skippable tasks can be bypassed entirely when their enablement flag is
	// disabled.
	Skippable bool

	// EnablementKey names the external boolean flag consulted when Skippable
	// is set. Empty means the conventional default for the task's name.
	EnablementKey string
}

// Task is the capability contract for a unit of executable work.
// Implementations must be safe for concurrent use; a single instance serves
// all workers.
type Task interface {
	Name() string
	Aliases() []string
	Capabilities() Capabilities
	Execute(ctx context.Context, stage *models.StageExecution) (TaskResult, error)
}

// EnablementKey resolves the configuration flag name for a task, applying
// the tasks.<name>.enabled convention when the capability record leaves it
// empty.
func EnablementKey(task Task) string {
	key := task.Capabilities().EnablementKey
	if key != "" {
		return key
	}

	return fmt.Sprintf("tasks.%s.enabled", task.Name())
}
