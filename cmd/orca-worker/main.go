package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/edgarulg/orca/pkg/compression"
	"github.com/edgarulg/orca/pkg/config"
	"github.com/edgarulg/orca/pkg/handlers"
	"github.com/edgarulg/orca/pkg/log"
	"github.com/edgarulg/orca/pkg/registry"
)

func main() {
	defaults := config.Default()

	cmd := &cli.Command{
		Name:                  "orca-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to run pipeline execution tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence, or 'memory'",
				Value:   "memory",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Work queue backend (redis, kafka, memory)",
				Value:   "memory",
				Sources: cli.EnvVars("QUEUE_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL for the redis queue backend",
				Value:   "redis://localhost:6379",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Lifecycle event bus backend (kafka, memory, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "stage-batch-size",
				Usage:   "Executions per stage fetch query",
				Value:   defaults.StageBatchSize,
				Sources: cli.EnvVars("STAGE_BATCH_SIZE"),
			},
			&cli.BoolFlag{
				Name:    "compression",
				Usage:   "Enable execution body compression",
				Value:   defaults.CompressionEnabled,
				Sources: cli.EnvVars("COMPRESSION_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "compression-scheme",
				Usage:   "Compression scheme for newly written bodies (GZIP, ZLIB)",
				Value:   string(defaults.CompressionScheme),
				Sources: cli.EnvVars("COMPRESSION_SCHEME"),
			},
			&cli.BoolFlag{
				Name:    "resolve-pipeline-triggers",
				Usage:   "Resolve pipeline-reference triggers against parent executions at load time",
				Value:   defaults.ResolvePipelineTriggers,
				Sources: cli.EnvVars("RESOLVE_PIPELINE_TRIGGERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("orca-worker").With("worker_id", workerID)

			cfg := config.Config{
				CompressionEnabled:      command.Bool("compression"),
				CompressionScheme:       compression.Scheme(command.String("compression-scheme")),
				StageBatchSize:          int(command.Int("stage-batch-size")),
				ResolvePipelineTriggers: command.Bool("resolve-pipeline-triggers"),
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Initializing worker")

			repository, err := setupPersistence(ctx, logger, command.String("database-url"), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := repository.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			workQueue, err := setupQueue(ctx, logger, command.String("queue"), command.String("redis-url"), workerID)
			if err != nil {
				return err
			}
			defer func() {
				if err := workQueue.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close queue", "error", err)
				}
			}()

			eventBus, err := setupEventBus(command.String("event-bus"), workerID)
			if err != nil {
				return err
			}
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			taskHandlers := handlers.New(
				repository,
				registry.NewRegistry(logger),
				workQueue,
				eventBus,
				config.NewEnvProvider(),
				nil,
				logger,
			)

			worker := NewWorkerManager(workerID, workQueue, taskHandlers, logger)

			return worker.Start(ctx)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
