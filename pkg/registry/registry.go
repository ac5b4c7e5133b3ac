// Package registry resolves task and stage type names, including historical
// aliases, to their registered implementations.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgarulg/orca/pkg/protocol"
)

// ErrUnknownType indicates no registered implementation matches a type name
// or alias.
var ErrUnknownType = errors.New("unknown type")

// Registry maps task and stage type names (plus aliases) to their runtime
// implementations. Registration happens once at process start from a fixed
// provider list; the registry is read-only thereafter and safe for
// concurrent lookup.
type Registry struct {
	logger *slog.Logger
	tasks  map[string]protocol.Task
	stages map[string]protocol.StageDefinition
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger: log,
		tasks:  make(map[string]protocol.Task),
		stages: make(map[string]protocol.StageDefinition),
	}
}

// RegisterTask adds a task under its name and all aliases. Later
// registrations win, matching provider-list precedence.
func (r *Registry) RegisterTask(task protocol.Task) {
	r.tasks[task.Name()] = task
	for _, alias := range task.Aliases() {
		r.tasks[alias] = task
	}
}

// RegisterStage adds a stage definition under its type and all aliases.
func (r *Registry) RegisterStage(stage protocol.StageDefinition) {
	r.stages[stage.Type()] = stage
	for _, alias := range stage.Aliases() {
		r.stages[alias] = stage
	}
}

// ResolveTask returns the task implementation for a type name or alias.
func (r *Registry) ResolveTask(nameOrAlias string) (protocol.Task, error) {
	task, ok := r.tasks[nameOrAlias]
	if !ok {
		return nil, fmt.Errorf("%w: no task implementation for %q", ErrUnknownType, nameOrAlias)
	}

	return task, nil
}

// ResolveStage returns the stage definition for a type name or alias.
func (r *Registry) ResolveStage(nameOrAlias string) (protocol.StageDefinition, error) {
	stage, ok := r.stages[nameOrAlias]
	if !ok {
		return nil, fmt.Errorf("%w: no stage definition for %q", ErrUnknownType, nameOrAlias)
	}

	return stage, nil
}
