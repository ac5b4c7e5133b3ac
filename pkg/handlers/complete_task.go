package handlers

import (
	"context"

	"github.com/edgarulg/orca/pkg/events"
	"github.com/edgarulg/orca/pkg/models"
	"github.com/edgarulg/orca/pkg/queue"
)

// HandleCompleteTask records a task's terminal status and advances the
// stage: halting statuses finalize the stage immediately, otherwise the next
// task is started or, when none remains, the stage succeeds. The first
// terminal write wins; redeliveries observe IsComplete and re-apply only the
// follow-on routing.
func (h *Handlers) HandleCompleteTask(ctx context.Context, msg queue.Message) error {
	complete, ok := msg.(*queue.CompleteTask)
	if !ok {
		h.logger.ErrorContext(ctx, "invalid message type for complete handler", "kind", msg.Kind())

		return nil
	}

	ptr := complete.Origin.TaskPointer

	logger := h.logger.With(
		"execution_id", ptr.ExecutionID,
		"stage_id", ptr.StageID,
		"task_id", ptr.TaskID,
	)

	if !complete.Status.IsComplete() {
		logger.WarnContext(ctx, "dropping completion with non-terminal status", "status", complete.Status)

		return nil
	}

	execution, stage, task, err := h.loadTask(ctx, ptr)
	if err != nil {
		return err
	}

	if !task.Status.IsComplete() {
		task.Status = complete.Status

		if complete.Status != models.StatusSkipped {
			endTime := h.now()
			task.EndTime = &endTime
		}
	}

	next := stage.NextTask(task)
	finalized := false

	switch {
	case task.Status.IsHalt():
		stage.Status = task.Status
		finalized = true
	case next == nil:
		stage.Status = models.StatusSucceeded
		finalized = true
	}

	if err := h.repository.StoreStage(ctx, stage); err != nil {
		return err
	}

	logger.InfoContext(ctx, "task complete", "status", task.Status)
	h.publish(ctx, execution.ID, events.TaskComplete{
		BaseEvent: events.NewBaseEvent(events.TaskCompleteEvent, ptr.ExecutionType, ptr.ExecutionID, ptr.StageID),
		TaskID:    task.ID,
		Status:    task.Status,
	})

	if finalized {
		logger.InfoContext(ctx, "stage complete", "status", stage.Status)
		h.publish(ctx, execution.ID, events.StageComplete{
			BaseEvent: events.NewBaseEvent(events.StageCompleteEvent, ptr.ExecutionType, ptr.ExecutionID, ptr.StageID),
			Status:    stage.Status,
		})

		return nil
	}

	return h.queue.Push(ctx, queue.StartTask{TaskPointer: queue.TaskPointer{
		ExecutionType: ptr.ExecutionType,
		ExecutionID:   ptr.ExecutionID,
		StageID:       ptr.StageID,
		TaskID:        next.ID,
	}})
}
