// Package persistence defines the execution repository abstraction and the
// standardized error types shared by its implementations.
package persistence

import (
	"context"

	"github.com/edgarulg/orca/pkg/models"
)

// ExecutionRepository is the single source of truth for execution state.
//
// Retrieve and List return fully mapped executions: stages attached and
// ordered by RefID, bodies decompressed, pipeline-reference triggers
// resolved where possible. Store and StoreStage are the write-of-record for
// handler transitions and must complete before any follow-on message is
// enqueued.
type ExecutionRepository interface {
	Retrieve(ctx context.Context, executionType models.ExecutionType, id string) (*models.PipelineExecution, error)
	List(ctx context.Context, executionType models.ExecutionType, limit int) ([]*models.PipelineExecution, error)
	Store(ctx context.Context, execution *models.PipelineExecution) error
	StoreStage(ctx context.Context, stage *models.StageExecution) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
