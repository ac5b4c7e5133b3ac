package handlers

import (
	"context"

	"github.com/edgarulg/orca/pkg/models"
	"github.com/edgarulg/orca/pkg/protocol"
	"github.com/edgarulg/orca/pkg/queue"
)

// HandleRunTask invokes the task implementation once and routes its result:
// RUNNING re-enqueues the run for another poll, a terminal status hands off
// to CompleteTask. An Execute error fails the task rather than the handler;
// the queue would only redeliver the same failure.
func (h *Handlers) HandleRunTask(ctx context.Context, msg queue.Message) error {
	run, ok := msg.(*queue.RunTask)
	if !ok {
		h.logger.ErrorContext(ctx, "invalid message type for run handler", "kind", msg.Kind())

		return nil
	}

	logger := h.logger.With(
		"execution_id", run.ExecutionID,
		"stage_id", run.StageID,
		"task_id", run.TaskID,
	)

	_, stage, task, err := h.loadTask(ctx, run.TaskPointer)
	if err != nil {
		return err
	}

	if task.Status.IsComplete() {
		logger.InfoContext(ctx, "task already complete, ignoring run", "status", task.Status)

		return nil
	}

	impl, err := h.registry.ResolveTask(run.ImplementingClass)
	if err != nil {
		return err
	}

	result, execErr := impl.Execute(ctx, stage)
	if execErr != nil {
		logger.ErrorContext(ctx, "task execution failed",
			"task_type", run.ImplementingClass,
			"error", execErr,
		)

		result = protocol.TaskResult{Status: models.StatusFailed}
	}

	mergeContext(stage, result)

	if err := h.repository.StoreStage(ctx, stage); err != nil {
		return err
	}

	if result.Status == models.StatusRunning {
		return h.queue.Push(ctx, *run)
	}

	status := result.Status
	if !status.IsComplete() {
		logger.WarnContext(ctx, "task returned non-terminal status, failing",
			"task_type", run.ImplementingClass,
			"status", status,
		)

		status = models.StatusFailed
	}

	return h.queue.Push(ctx, queue.CompleteTask{
		Origin: queue.StartTask{TaskPointer: run.TaskPointer},
		Status: status,
	})
}

// mergeContext folds a task result into the owning stage's context. Outputs
// land after Context so they win on key collision; downstream tasks read the
// merged view.
func mergeContext(stage *models.StageExecution, result protocol.TaskResult) {
	if len(result.Context) == 0 && len(result.Outputs) == 0 {
		return
	}

	if stage.Context == nil {
		stage.Context = make(map[string]any, len(result.Context)+len(result.Outputs))
	}

	for key, value := range result.Context {
		stage.Context[key] = value
	}

	for key, value := range result.Outputs {
		stage.Context[key] = value
	}
}
