package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/edgarulg/orca/pkg/compression"
	"github.com/edgarulg/orca/pkg/models"
	"github.com/edgarulg/orca/pkg/persistence"
)

func (r *Repository) mapper() *executionMapper {
	return newExecutionMapper(r.cfg, r.logger, r, r)
}

// Retrieve loads one execution with its full stage graph.
func (r *Repository) Retrieve(ctx context.Context, executionType models.ExecutionType, id string) (*models.PipelineExecution, error) {
	rows, err := r.executionRows(ctx, executionType, id, 1)
	if err != nil {
		return nil, persistence.NewExecutionError("Retrieve", id, err)
	}

	executions, err := r.mapper().Map(ctx, executionType, rows)
	if err != nil {
		return nil, persistence.NewExecutionError("Retrieve", id, err)
	}

	if len(executions) == 0 {
		return nil, persistence.NewExecutionError("Retrieve", id, persistence.ErrExecutionNotFound)
	}

	return executions[0], nil
}

// List returns up to limit executions of a type, newest first.
func (r *Repository) List(ctx context.Context, executionType models.ExecutionType, limit int) ([]*models.PipelineExecution, error) {
	rows, err := r.executionRows(ctx, executionType, "", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	executions, err := r.mapper().Map(ctx, executionType, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// retrieveParent fetches the parent execution of a pipeline-reference
// trigger. Only the first match is needed, so the read is bounded to a
// single row. Parents of pipelines are pipelines.
func (r *Repository) retrieveParent(ctx context.Context, id string) (*models.PipelineExecution, error) {
	return r.Retrieve(ctx, models.Pipeline, id)
}

// Store writes an execution and all its attached stages in one transaction.
func (r *Repository) Store(ctx context.Context, execution *models.PipelineExecution) error {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewExecutionError("Store", execution.ID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	body, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewExecutionError("Store", execution.ID, fmt.Errorf("failed to serialize execution: %w", err))
	}

	execution.Size = int64(len(body))

	plain, compressionType, compressed, err := r.encodeBody(string(body))
	if err != nil {
		return persistence.NewExecutionError("Store", execution.ID, err)
	}

	executionQuery := `
		INSERT INTO pipeline_executions (id, execution_type, body, compression_type, compressed_body, partition, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			body = EXCLUDED.body,
			compression_type = EXCLUDED.compression_type,
			compressed_body = EXCLUDED.compressed_body,
			partition = EXCLUDED.partition,
			updated_at = EXCLUDED.updated_at
	`

	_, err = transaction.ExecContext(ctx, executionQuery,
		execution.ID,
		string(execution.Type),
		plain,
		compressionType,
		compressed,
		execution.Partition,
	)
	if err != nil {
		return persistence.NewExecutionError("Store", execution.ID, fmt.Errorf("failed to save execution: %w", err))
	}

	for _, stage := range execution.Stages {
		if err := r.storeStageTx(ctx, transaction, execution, stage); err != nil {
			return persistence.NewExecutionError("Store", execution.ID, err)
		}
	}

	if err := transaction.Commit(); err != nil {
		return persistence.NewExecutionError("Store", execution.ID, fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// StoreStage persists a single stage. This is the write-of-record for
// handler transitions: it must complete before any follow-on message is
// enqueued.
func (r *Repository) StoreStage(ctx context.Context, stage *models.StageExecution) error {
	execution := stage.Execution()
	if execution == nil {
		return persistence.NewExecutionError("StoreStage", "", persistence.ErrDetachedStage)
	}

	if err := r.storeStageTx(ctx, r.db, execution, stage); err != nil {
		return persistence.NewExecutionError("StoreStage", execution.ID, err)
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) storeStageTx(ctx context.Context, db execer, execution *models.PipelineExecution, stage *models.StageExecution) error {
	body, err := json.Marshal(stage)
	if err != nil {
		return fmt.Errorf("failed to serialize stage %s: %w", stage.ID, err)
	}

	stage.Size = int64(len(body))

	plain, compressionType, compressed, err := r.encodeBody(string(body))
	if err != nil {
		return err
	}

	// execution_id is written with the logical id on insert; rows persisted
	// under a legacy id keep their stored execution_id on update.
	stageQuery := `
		INSERT INTO pipeline_stages (id, execution_id, execution_type, body, compression_type, compressed_body, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			body = EXCLUDED.body,
			compression_type = EXCLUDED.compression_type,
			compressed_body = EXCLUDED.compressed_body,
			updated_at = EXCLUDED.updated_at
	`

	_, err = db.ExecContext(ctx, stageQuery,
		stage.ID,
		execution.ID,
		string(execution.Type),
		plain,
		compressionType,
		compressed,
	)
	if err != nil {
		return fmt.Errorf("failed to save stage %s: %w", stage.ID, err)
	}

	return nil
}

// encodeBody splits a serialized body into the plain and compressed column
// values according to the compression configuration.
func (r *Repository) encodeBody(body string) (plain string, compressionType *string, compressed []byte, err error) {
	if !r.cfg.CompressionEnabled {
		return body, nil, nil, nil
	}

	compressed, err = compression.Compress(r.cfg.CompressionScheme, body)
	if err != nil {
		return "", nil, nil, err
	}

	scheme := string(r.cfg.CompressionScheme)

	return "", &scheme, compressed, nil
}
