package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgarulg/orca/pkg/handlers"
	"github.com/edgarulg/orca/pkg/queue"
)

// WorkerManager wires the lifecycle handlers onto the work queue and keeps
// the process alive until it is signalled to stop.
type WorkerManager struct {
	id       string
	logger   *slog.Logger
	queue    queue.Queue
	handlers *handlers.Handlers
}

func NewWorkerManager(
	id string,
	q queue.Queue,
	taskHandlers *handlers.Handlers,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:       id,
		logger:   logger.With("module", "orca-worker", "worker_id", id),
		queue:    q,
		handlers: taskHandlers,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	w.handlers.Register(w.queue)

	if err := w.queue.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to work queue", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}
