package handlers

import (
	"context"

	"github.com/edgarulg/orca/pkg/events"
	"github.com/edgarulg/orca/pkg/models"
	"github.com/edgarulg/orca/pkg/protocol"
	"github.com/edgarulg/orca/pkg/queue"
)

// HandleStartTask transitions a task out of NOT_STARTED. Disabled skippable
// tasks go straight to SKIPPED without a start time; everything else becomes
// RUNNING and gets a RunTask enqueued. Redelivery of a start for a task that
// already ran leaves the recorded state untouched.
func (h *Handlers) HandleStartTask(ctx context.Context, msg queue.Message) error {
	start, ok := msg.(*queue.StartTask)
	if !ok {
		h.logger.ErrorContext(ctx, "invalid message type for start handler", "kind", msg.Kind())

		return nil
	}

	logger := h.logger.With(
		"execution_id", start.ExecutionID,
		"stage_id", start.StageID,
		"task_id", start.TaskID,
	)

	execution, stage, task, err := h.loadTask(ctx, start.TaskPointer)
	if err != nil {
		return err
	}

	if task.Status.IsComplete() {
		logger.InfoContext(ctx, "task already complete, ignoring start", "status", task.Status)

		return nil
	}

	impl, err := h.registry.ResolveTask(taskType(task))
	if err != nil {
		return err
	}

	if impl.Capabilities().Skippable && !h.flags.BoolValue(protocol.EnablementKey(impl), true) {
		task.Status = models.StatusSkipped

		if err := h.repository.StoreStage(ctx, stage); err != nil {
			return err
		}

		logger.InfoContext(ctx, "task disabled, skipping", "task_type", impl.Name())
		h.publish(ctx, execution.ID, events.TaskComplete{
			BaseEvent: events.NewBaseEvent(events.TaskCompleteEvent, start.ExecutionType, start.ExecutionID, start.StageID),
			TaskID:    task.ID,
			Status:    models.StatusSkipped,
		})

		return h.queue.Push(ctx, queue.CompleteTask{Origin: *start, Status: models.StatusSkipped})
	}

	// A redelivered start for an already RUNNING task keeps the original
	// start time and simply re-enqueues the run.
	if task.Status != models.StatusRunning {
		task.Status = models.StatusRunning
		startTime := h.now()
		task.StartTime = &startTime
	}

	if stage.Status == models.StatusNotStarted {
		stage.Status = models.StatusRunning
	}

	if err := h.repository.StoreStage(ctx, stage); err != nil {
		return err
	}

	logger.InfoContext(ctx, "task started", "task_type", impl.Name())
	h.publish(ctx, execution.ID, events.TaskStarted{
		BaseEvent: events.NewBaseEvent(events.TaskStartedEvent, start.ExecutionType, start.ExecutionID, start.StageID),
		TaskID:    task.ID,
	})

	return h.queue.Push(ctx, queue.RunTask{
		TaskPointer:       start.TaskPointer,
		ImplementingClass: taskType(task),
	})
}

// taskType is the resolver key for a task record. Older executions persisted
// the implementation under ImplementingClass; newer ones only carry Name.
func taskType(task *models.TaskExecution) string {
	if task.ImplementingClass != "" {
		return task.ImplementingClass
	}

	return task.Name
}
