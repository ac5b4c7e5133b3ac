// Package memory implements the execution repository in process memory.
// It backs tests and local development; semantics mirror the PostgreSQL
// implementation, including body serialization, so executions round-trip
// through the same codec either way.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edgarulg/orca/pkg/models"
	"github.com/edgarulg/orca/pkg/persistence"
)

type storedStage struct {
	executionID string
	body        string
}

// Repository implements persistence.ExecutionRepository with maps.
type Repository struct {
	mu         sync.RWMutex
	logger     *slog.Logger
	executions map[models.ExecutionType]map[string]string // id -> body
	order      map[models.ExecutionType][]string
	stages     map[string]storedStage // stage id -> row
	partitions map[string]string      // execution id -> partition
}

func NewRepository(logger *slog.Logger) *Repository {
	return &Repository{
		logger:     logger,
		executions: make(map[models.ExecutionType]map[string]string),
		order:      make(map[models.ExecutionType][]string),
		stages:     make(map[string]storedStage),
		partitions: make(map[string]string),
	}
}

func (r *Repository) Retrieve(ctx context.Context, executionType models.ExecutionType, id string) (*models.PipelineExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, err := r.retrieveLocked(executionType, id)
	if err != nil {
		return nil, persistence.NewExecutionError("Retrieve", id, err)
	}

	return execution, nil
}

func (r *Repository) retrieveLocked(executionType models.ExecutionType, id string) (*models.PipelineExecution, error) {
	body, ok := r.executions[executionType][id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	return r.hydrateLocked(executionType, id, body)
}

func (r *Repository) hydrateLocked(executionType models.ExecutionType, id, body string) (*models.PipelineExecution, error) {
	execution := &models.PipelineExecution{}
	if err := json.Unmarshal([]byte(body), execution); err != nil {
		return nil, fmt.Errorf("failed to deserialize execution %s: %w", id, err)
	}

	execution.Size = int64(len(body))
	execution.Partition = r.partitions[id]

	for stageID, row := range r.stages {
		if row.executionID != id {
			continue
		}

		stage := &models.StageExecution{}
		if err := json.Unmarshal([]byte(row.body), stage); err != nil {
			return nil, fmt.Errorf("failed to deserialize stage %s: %w", stageID, err)
		}

		stage.Size = int64(len(row.body))
		execution.AttachStage(stage)
	}

	execution.SortStages()

	r.resolveTriggerLocked(execution)

	return execution, nil
}

func (r *Repository) resolveTriggerLocked(execution *models.PipelineExecution) {
	trigger := execution.Trigger
	if !trigger.IsPipeline() || trigger.Resolved || trigger.ParentExecutionID == "" {
		return
	}

	parent, err := r.retrieveLocked(models.Pipeline, trigger.ParentExecutionID)
	if err != nil {
		r.logger.Warn("parent execution not found, leaving trigger unresolved",
			"execution_id", execution.ID,
			"parent_execution_id", trigger.ParentExecutionID,
		)

		return
	}

	execution.Trigger = models.ResolvedPipelineTrigger(trigger, parent)
}

func (r *Repository) List(ctx context.Context, executionType models.ExecutionType, limit int) ([]*models.PipelineExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var executions []*models.PipelineExecution

	for _, id := range r.order[executionType] {
		if limit > 0 && len(executions) >= limit {
			break
		}

		execution, err := r.retrieveLocked(executionType, id)
		if err != nil {
			return nil, fmt.Errorf("failed to list executions: %w", err)
		}

		executions = append(executions, execution)
	}

	return executions, nil
}

func (r *Repository) Store(ctx context.Context, execution *models.PipelineExecution) error {
	body, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewExecutionError("Store", execution.ID, fmt.Errorf("failed to serialize execution: %w", err))
	}

	execution.Size = int64(len(body))

	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.executions[execution.Type]
	if !ok {
		byID = make(map[string]string)
		r.executions[execution.Type] = byID
	}

	if _, exists := byID[execution.ID]; !exists {
		r.order[execution.Type] = append(r.order[execution.Type], execution.ID)
	}

	byID[execution.ID] = string(body)
	r.partitions[execution.ID] = execution.Partition

	for _, stage := range execution.Stages {
		if err := r.storeStageLocked(execution.ID, stage); err != nil {
			return persistence.NewExecutionError("Store", execution.ID, err)
		}
	}

	return nil
}

func (r *Repository) StoreStage(ctx context.Context, stage *models.StageExecution) error {
	execution := stage.Execution()
	if execution == nil {
		return persistence.NewExecutionError("StoreStage", "", persistence.ErrDetachedStage)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.storeStageLocked(execution.ID, stage); err != nil {
		return persistence.NewExecutionError("StoreStage", execution.ID, err)
	}

	return nil
}

func (r *Repository) storeStageLocked(executionID string, stage *models.StageExecution) error {
	body, err := json.Marshal(stage)
	if err != nil {
		return fmt.Errorf("failed to serialize stage %s: %w", stage.ID, err)
	}

	stage.Size = int64(len(body))
	r.stages[stage.ID] = storedStage{executionID: executionID, body: string(body)}

	return nil
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	return nil
}

func (r *Repository) Close(ctx context.Context) error {
	return nil
}
