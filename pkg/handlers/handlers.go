// Package handlers implements the task lifecycle state machine: one handler
// per queue message kind. Each handler loads current state through the
// repository, applies one transition, persists it, then publishes events and
// enqueues follow-on work.
//
// Persistence is always the write-of-record: a crash between the stage write
// and the enqueue is recovered by message redelivery, so every transition is
// idempotent under at-least-once delivery. Load and persist failures
// propagate unchanged; retry policy belongs to the surrounding dispatcher.
package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/edgarulg/orca/pkg/config"
	"github.com/edgarulg/orca/pkg/eventbus"
	"github.com/edgarulg/orca/pkg/events"
	"github.com/edgarulg/orca/pkg/models"
	"github.com/edgarulg/orca/pkg/persistence"
	"github.com/edgarulg/orca/pkg/queue"
	"github.com/edgarulg/orca/pkg/registry"
)

type Handlers struct {
	repository persistence.ExecutionRepository
	registry   *registry.Registry
	queue      queue.Queue
	eventBus   eventbus.EventBus
	flags      config.Provider
	clock      clockwork.Clock
	logger     *slog.Logger
}

func New(
	repository persistence.ExecutionRepository,
	reg *registry.Registry,
	q queue.Queue,
	eventBus eventbus.EventBus,
	flags config.Provider,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Handlers {
	if flags == nil {
		flags = config.NewEnvProvider()
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Handlers{
		repository: repository,
		registry:   reg,
		queue:      q,
		eventBus:   eventBus,
		flags:      flags,
		clock:      clock,
		logger:     logger.With("module", "handlers"),
	}
}

// Register wires one handler per message kind onto the queue. Call before
// Subscribe.
func (h *Handlers) Register(q queue.Queue) {
	q.Handle(queue.KindStartTask, h.HandleStartTask)
	q.Handle(queue.KindRunTask, h.HandleRunTask)
	q.Handle(queue.KindCompleteTask, h.HandleCompleteTask)
}

// loadTask fetches the execution graph and locates the addressed stage and
// task. Failures propagate unchanged to the message-processing harness.
func (h *Handlers) loadTask(ctx context.Context, ptr queue.TaskPointer) (*models.PipelineExecution, *models.StageExecution, *models.TaskExecution, error) {
	execution, err := h.repository.Retrieve(ctx, ptr.ExecutionType, ptr.ExecutionID)
	if err != nil {
		return nil, nil, nil, err
	}

	stage, ok := execution.StageByID(ptr.StageID)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: stage %s in execution %s", persistence.ErrStageNotFound, ptr.StageID, ptr.ExecutionID)
	}

	task, ok := stage.TaskByID(ptr.TaskID)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: task %s in stage %s", persistence.ErrTaskNotFound, ptr.TaskID, ptr.StageID)
	}

	return execution, stage, task, nil
}

// publish broadcasts a lifecycle event. Publication is fire-and-forget: a
// failed publish is logged, never returned, and never rolls back state.
func (h *Handlers) publish(ctx context.Context, key string, event events.Event) {
	if err := h.eventBus.Publish(ctx, key, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to publish lifecycle event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

func (h *Handlers) now() int64 {
	return h.clock.Now().UnixMilli()
}
