package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/edgarulg/orca/pkg/channels/gochannel"
	"github.com/edgarulg/orca/pkg/channels/kafka"
	"github.com/edgarulg/orca/pkg/config"
	"github.com/edgarulg/orca/pkg/eventbus"
	"github.com/edgarulg/orca/pkg/persistence"
	"github.com/edgarulg/orca/pkg/persistence/memory"
	"github.com/edgarulg/orca/pkg/persistence/postgresql"
	"github.com/edgarulg/orca/pkg/queue"
	"github.com/edgarulg/orca/pkg/queue/redisqueue"
)

func setupPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, cfg config.Config) (persistence.ExecutionRepository, error) {
	if databaseURL == "" || databaseURL == "memory" {
		return memory.NewRepository(logger), nil
	}

	repository, err := postgresql.NewRepository(ctx, logger, databaseURL, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up postgres persistence: %w", err)
	}

	return repository, nil
}

func setupQueue(ctx context.Context, logger *slog.Logger, queueType, redisURL, workerID string) (queue.Queue, error) {
	switch queueType {
	case "redis":
		q, err := redisqueue.New(ctx, logger, redisURL, queue.Topic)
		if err != nil {
			return nil, fmt.Errorf("failed to set up redis queue: %w", err)
		}

		return q, nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "orca-worker")
		if err != nil {
			return nil, fmt.Errorf("failed to set up kafka queue: %w", err)
		}

		return queue.NewWatermillQueue(pub, sub), nil
	case "memory":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to set up in-memory queue: %w", err)
		}

		return queue.NewWatermillQueue(pub, sub), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", queueType)
	}
}

func setupEventBus(busType, workerID string) (eventbus.EventBus, error) {
	watermillLogger := watermill.NewStdLogger(false, false)

	switch busType {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, "orca-worker-events")
		if err != nil {
			return nil, fmt.Errorf("failed to set up kafka event bus: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "memory":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to set up in-memory event bus: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "none", "":
		return eventbus.NewNopEventBus(), nil
	default:
		return nil, fmt.Errorf("unknown event bus backend %q", busType)
	}
}
