package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/edgarulg/orca/pkg/config"
	"github.com/edgarulg/orca/pkg/models"
	"github.com/edgarulg/orca/pkg/persistence"
)

// stageReader issues the batched stage fetch for a set of storage ids.
type stageReader interface {
	stageRows(ctx context.Context, executionType models.ExecutionType, storageIDs []string) (rowIterator, error)
}

// parentReader locates the parent execution of a pipeline-reference trigger.
type parentReader interface {
	retrieveParent(ctx context.Context, id string) (*models.PipelineExecution, error)
}

// executionMapper reconstructs execution graphs from store rows.
//
// Executions are the query root; stages are fetched in bulk, batched, to
// bound query fan-out while avoiding one round-trip per execution. Some rows
// predate the id migration and are stored under a legacy identifier; the
// mapper indexes those executions by the storage id for stage attachment
// while returning them keyed by their logical id.
type executionMapper struct {
	cfg     config.Config
	logger  *slog.Logger
	stages  stageReader
	parents parentReader
}

func newExecutionMapper(cfg config.Config, logger *slog.Logger, stages stageReader, parents parentReader) *executionMapper {
	return &executionMapper{
		cfg:     cfg,
		logger:  logger,
		stages:  stages,
		parents: parents,
	}
}

// Map consumes execution rows, hydrates each body, loads and attaches stages
// batch by batch, and returns executions in first-encountered row order.
func (m *executionMapper) Map(ctx context.Context, executionType models.ExecutionType, rows rowIterator) ([]*models.PipelineExecution, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			m.logger.ErrorContext(ctx, "failed to close execution rows", "error", err)
		}
	}()

	var ordered []*models.PipelineExecution

	byStorageID := make(map[string]*models.PipelineExecution)

	// Transient, per-call: logical id -> legacy id the stages are stored under.
	legacyIDs := make(map[string]string)

	for {
		row, ok, err := rows.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		body, err := resolveBody(m.cfg.CompressionEnabled, row)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve body for execution %s: %w", row.ID, err)
		}

		if body == "" {
			continue
		}

		execution := &models.PipelineExecution{}
		if err := json.Unmarshal([]byte(body), execution); err != nil {
			return nil, fmt.Errorf("failed to deserialize execution %s: %w", row.ID, err)
		}

		execution.Size = int64(len(body))
		execution.Partition = row.Partition.String

		if err := m.resolveTrigger(ctx, execution); err != nil {
			return nil, err
		}

		storageID := execution.ID
		if row.ID != execution.ID {
			legacyIDs[execution.ID] = row.ID
			storageID = row.ID
		}

		byStorageID[storageID] = execution
		ordered = append(ordered, execution)
	}

	batchSize := m.cfg.StageBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(ordered); start += batchSize {
		end := min(start+batchSize, len(ordered))
		batch := ordered[start:end]

		storageIDs := make([]string, 0, len(batch))

		for _, execution := range batch {
			if legacyID, ok := legacyIDs[execution.ID]; ok {
				storageIDs = append(storageIDs, legacyID)
			} else {
				storageIDs = append(storageIDs, execution.ID)
			}
		}

		if err := m.attachStages(ctx, executionType, storageIDs, byStorageID); err != nil {
			return nil, err
		}

		for _, execution := range batch {
			execution.SortStages()
		}
	}

	return ordered, nil
}

func (m *executionMapper) attachStages(ctx context.Context, executionType models.ExecutionType, storageIDs []string, byStorageID map[string]*models.PipelineExecution) error {
	rows, err := m.stages.stageRows(ctx, executionType, storageIDs)
	if err != nil {
		return err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			m.logger.ErrorContext(ctx, "failed to close stage rows", "error", err)
		}
	}()

	for {
		row, ok, err := rows.Next()
		if err != nil {
			return err
		}

		if !ok {
			return nil
		}

		body, err := resolveBody(m.cfg.CompressionEnabled, row)
		if err != nil {
			return fmt.Errorf("failed to resolve body for stage %s: %w", row.ID, err)
		}

		if body == "" {
			continue
		}

		stage := &models.StageExecution{}
		if err := json.Unmarshal([]byte(body), stage); err != nil {
			return fmt.Errorf("failed to deserialize stage %s: %w", row.ID, err)
		}

		stage.Size = int64(len(body))

		owner, ok := byStorageID[row.ExecutionID]
		if !ok {
			// The batch query is parameterized by the ids above, so this only
			// happens when an execution body was empty and skipped.
			m.logger.WarnContext(ctx, "stage row has no mapped execution",
				"stage_id", row.ID,
				"execution_id", row.ExecutionID,
			)

			continue
		}

		owner.AttachStage(stage)
	}
}

// resolveTrigger replaces an unresolved pipeline-reference trigger with its
// hydrated form. A missing parent is non-fatal: listing executions must not
// be blocked by a dangling reference, so the trigger stays unresolved and a
// warning is recorded. A failed parent query is fatal; conflating it with
// not-found would mask store outages.
func (m *executionMapper) resolveTrigger(ctx context.Context, execution *models.PipelineExecution) error {
	if !m.cfg.ResolvePipelineTriggers {
		return nil
	}

	trigger := execution.Trigger
	if !trigger.IsPipeline() || trigger.Resolved {
		return nil
	}

	if trigger.ParentExecutionID == "" {
		m.logger.WarnContext(ctx, "pipeline trigger has no parent execution id",
			"execution_id", execution.ID,
		)

		return nil
	}

	parent, err := m.parents.retrieveParent(ctx, trigger.ParentExecutionID)
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			m.logger.WarnContext(ctx, "parent execution not found, leaving trigger unresolved",
				"execution_id", execution.ID,
				"parent_execution_id", trigger.ParentExecutionID,
			)

			return nil
		}

		return fmt.Errorf("failed to resolve parent execution %s: %w", trigger.ParentExecutionID, err)
	}

	execution.Trigger = models.ResolvedPipelineTrigger(trigger, parent)

	return nil
}
