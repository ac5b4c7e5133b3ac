package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgarulg/orca/pkg/config"
	"github.com/edgarulg/orca/pkg/models"
	"github.com/edgarulg/orca/pkg/persistence"
)

// sliceIterator feeds the mapper from a fixed set of rows.
type sliceIterator struct {
	rows   []bodyRow
	pos    int
	err    error
	closed bool
}

func (it *sliceIterator) Next() (bodyRow, bool, error) {
	if it.err != nil {
		return bodyRow{}, false, it.err
	}

	if it.pos >= len(it.rows) {
		return bodyRow{}, false, nil
	}

	row := it.rows[it.pos]
	it.pos++

	return row, true, nil
}

func (it *sliceIterator) Close() error {
	it.closed = true

	return nil
}

// fakeStageReader returns canned stage rows and records each batch of
// storage ids it was asked for.
type fakeStageReader struct {
	rows    []bodyRow
	batches [][]string
}

func (f *fakeStageReader) stageRows(_ context.Context, _ models.ExecutionType, storageIDs []string) (rowIterator, error) {
	batch := make([]string, len(storageIDs))
	copy(batch, storageIDs)
	f.batches = append(f.batches, batch)

	var matched []bodyRow

	for _, row := range f.rows {
		for _, id := range storageIDs {
			if row.ExecutionID == id {
				matched = append(matched, row)

				break
			}
		}
	}

	return &sliceIterator{rows: matched}, nil
}

// fakeParentReader serves parent executions from a map.
type fakeParentReader struct {
	parents map[string]*models.PipelineExecution
	err     error
}

func (f *fakeParentReader) retrieveParent(_ context.Context, id string) (*models.PipelineExecution, error) {
	if f.err != nil {
		return nil, f.err
	}

	parent, ok := f.parents[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	return parent, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testMapper(t *testing.T, cfg config.Config, stages *fakeStageReader, parents *fakeParentReader) *executionMapper {
	t.Helper()

	if stages == nil {
		stages = &fakeStageReader{}
	}

	if parents == nil {
		parents = &fakeParentReader{}
	}

	return newExecutionMapper(cfg, testLogger(), stages, parents)
}

func executionRow(t *testing.T, rowID string, execution *models.PipelineExecution) bodyRow {
	t.Helper()

	body, err := json.Marshal(execution)
	require.NoError(t, err)

	return bodyRow{
		ID:   rowID,
		Body: sql.NullString{String: string(body), Valid: true},
	}
}

func stageRowFor(t *testing.T, executionID string, stage *models.StageExecution) bodyRow {
	t.Helper()

	body, err := json.Marshal(stage)
	require.NoError(t, err)

	return bodyRow{
		ID:          stage.ID,
		ExecutionID: executionID,
		Body:        sql.NullString{String: string(body), Valid: true},
	}
}

func TestMapperRoundTrip(t *testing.T) {
	ctx := context.Background()

	execution := &models.PipelineExecution{
		ID:          "01JA0000000000000000000001",
		Type:        models.Pipeline,
		Application: "orca",
		Name:        "deploy",
		Status:      models.StatusRunning,
		Trigger:     models.Trigger{Type: models.TriggerManual, User: "anonymous"},
	}

	stages := &fakeStageReader{rows: []bodyRow{
		stageRowFor(t, execution.ID, &models.StageExecution{ID: "stage-2", RefID: "2", Type: "deploy"}),
		stageRowFor(t, execution.ID, &models.StageExecution{ID: "stage-1", RefID: "1", Type: "bake"}),
	}}

	mapper := testMapper(t, config.Default(), stages, nil)

	rows := &sliceIterator{rows: []bodyRow{executionRow(t, execution.ID, execution)}}

	mapped, err := mapper.Map(ctx, models.Pipeline, rows)
	require.NoError(t, err)
	require.Len(t, mapped, 1)
	assert.True(t, rows.closed)

	got := mapped[0]
	assert.Equal(t, execution.ID, got.ID)
	assert.Equal(t, "deploy", got.Name)
	assert.Equal(t, models.StatusRunning, got.Status)
	assert.Positive(t, got.Size)

	// Stages come back RefID-ascending regardless of row order, attached to
	// their owner.
	require.Len(t, got.Stages, 2)
	assert.Equal(t, "stage-1", got.Stages[0].ID)
	assert.Equal(t, "stage-2", got.Stages[1].ID)
	assert.Same(t, got, got.Stages[0].Execution())
}

func TestMapperPreservesRowOrder(t *testing.T) {
	ctx := context.Background()

	var rows []bodyRow

	ids := []string{"exec-c", "exec-a", "exec-b"}
	for _, id := range ids {
		rows = append(rows, executionRow(t, id, &models.PipelineExecution{
			ID:      id,
			Type:    models.Orchestration,
			Status:  models.StatusNotStarted,
			Trigger: models.Trigger{Type: models.TriggerManual},
		}))
	}

	mapper := testMapper(t, config.Default(), nil, nil)

	mapped, err := mapper.Map(ctx, models.Orchestration, &sliceIterator{rows: rows})
	require.NoError(t, err)
	require.Len(t, mapped, 3)

	for i, id := range ids {
		assert.Equal(t, id, mapped[i].ID)
	}
}

func TestMapperSkipsEmptyBodies(t *testing.T) {
	ctx := context.Background()

	execution := &models.PipelineExecution{
		ID:      "exec-1",
		Type:    models.Pipeline,
		Status:  models.StatusRunning,
		Trigger: models.Trigger{Type: models.TriggerManual},
	}

	rows := []bodyRow{
		{ID: "exec-0"}, // null body, skipped
		executionRow(t, execution.ID, execution),
	}

	mapper := testMapper(t, config.Default(), nil, nil)

	mapped, err := mapper.Map(ctx, models.Pipeline, &sliceIterator{rows: rows})
	require.NoError(t, err)
	require.Len(t, mapped, 1)
	assert.Equal(t, "exec-1", mapped[0].ID)
}

func TestMapperLegacyIDStageAttachment(t *testing.T) {
	ctx := context.Background()

	// The body carries the logical id; the row is stored under a legacy id
	// and so are its stages.
	execution := &models.PipelineExecution{
		ID:      "01JA0000000000000000000001",
		Type:    models.Pipeline,
		Status:  models.StatusRunning,
		Trigger: models.Trigger{Type: models.TriggerManual},
	}

	stages := &fakeStageReader{rows: []bodyRow{
		stageRowFor(t, "legacy-123", &models.StageExecution{ID: "stage-1", RefID: "1", Type: "bake"}),
	}}

	mapper := testMapper(t, config.Default(), stages, nil)

	rows := &sliceIterator{rows: []bodyRow{executionRow(t, "legacy-123", execution)}}

	mapped, err := mapper.Map(ctx, models.Pipeline, rows)
	require.NoError(t, err)
	require.Len(t, mapped, 1)

	// The execution keeps its logical id while stages stored under the
	// legacy id still land on it.
	got := mapped[0]
	assert.Equal(t, "01JA0000000000000000000001", got.ID)
	require.Len(t, got.Stages, 1)
	assert.Equal(t, "stage-1", got.Stages[0].ID)

	// The stage fetch must have queried the legacy id, not the logical one.
	require.Len(t, stages.batches, 1)
	assert.Equal(t, []string{"legacy-123"}, stages.batches[0])
}

func TestMapperStageBatching(t *testing.T) {
	ctx := context.Background()

	var rows []bodyRow

	for _, id := range []string{"exec-1", "exec-2", "exec-3"} {
		rows = append(rows, executionRow(t, id, &models.PipelineExecution{
			ID:      id,
			Type:    models.Pipeline,
			Status:  models.StatusRunning,
			Trigger: models.Trigger{Type: models.TriggerManual},
		}))
	}

	cfg := config.Default()
	cfg.StageBatchSize = 2

	stages := &fakeStageReader{}
	mapper := testMapper(t, cfg, stages, nil)

	_, err := mapper.Map(ctx, models.Pipeline, &sliceIterator{rows: rows})
	require.NoError(t, err)

	require.Len(t, stages.batches, 2)
	assert.Equal(t, []string{"exec-1", "exec-2"}, stages.batches[0])
	assert.Equal(t, []string{"exec-3"}, stages.batches[1])
}

func TestMapperResolvesPipelineTrigger(t *testing.T) {
	ctx := context.Background()

	parent := &models.PipelineExecution{
		ID:     "parent-1",
		Type:   models.Pipeline,
		Name:   "parent-pipeline",
		Status: models.StatusSucceeded,
		Trigger: models.Trigger{
			Type:       models.TriggerManual,
			Parameters: map[string]any{"region": "us-east-1"},
			Artifacts:  []models.Artifact{{Name: "image", Reference: "registry/app:1"}},
		},
	}

	child := &models.PipelineExecution{
		ID:     "child-1",
		Type:   models.Pipeline,
		Status: models.StatusNotStarted,
		Trigger: models.Trigger{
			Type:              models.TriggerPipeline,
			ParentExecutionID: "parent-1",
		},
	}

	parents := &fakeParentReader{parents: map[string]*models.PipelineExecution{"parent-1": parent}}
	mapper := testMapper(t, config.Default(), nil, parents)

	mapped, err := mapper.Map(ctx, models.Pipeline, &sliceIterator{rows: []bodyRow{executionRow(t, child.ID, child)}})
	require.NoError(t, err)
	require.Len(t, mapped, 1)

	trigger := mapped[0].Trigger
	assert.True(t, trigger.Resolved)
	assert.Equal(t, "parent-1", trigger.ParentExecutionID)
	assert.Equal(t, "parent-1", trigger.ParentPipelineID)
	assert.Equal(t, "parent-pipeline", trigger.ParentPipelineName)
	assert.Equal(t, map[string]any{"region": "us-east-1"}, trigger.Parameters)
	require.Len(t, trigger.Artifacts, 1)
	assert.Equal(t, "image", trigger.Artifacts[0].Name)
}

func TestMapperMissingParentLeavesTriggerUnresolved(t *testing.T) {
	ctx := context.Background()

	child := &models.PipelineExecution{
		ID:     "child-1",
		Type:   models.Pipeline,
		Status: models.StatusNotStarted,
		Trigger: models.Trigger{
			Type:              models.TriggerPipeline,
			ParentExecutionID: "purged-parent",
		},
	}

	mapper := testMapper(t, config.Default(), nil, &fakeParentReader{})

	mapped, err := mapper.Map(ctx, models.Pipeline, &sliceIterator{rows: []bodyRow{executionRow(t, child.ID, child)}})
	require.NoError(t, err)
	require.Len(t, mapped, 1)

	trigger := mapped[0].Trigger
	assert.False(t, trigger.Resolved)
	assert.Equal(t, "purged-parent", trigger.ParentExecutionID)
	assert.Empty(t, trigger.ParentPipelineName)
}

func TestMapperParentQueryFailureIsFatal(t *testing.T) {
	ctx := context.Background()

	child := &models.PipelineExecution{
		ID:     "child-1",
		Type:   models.Pipeline,
		Status: models.StatusNotStarted,
		Trigger: models.Trigger{
			Type:              models.TriggerPipeline,
			ParentExecutionID: "parent-1",
		},
	}

	queryErr := errors.New("connection reset")
	mapper := testMapper(t, config.Default(), nil, &fakeParentReader{err: queryErr})

	_, err := mapper.Map(ctx, models.Pipeline, &sliceIterator{rows: []bodyRow{executionRow(t, child.ID, child)}})
	require.Error(t, err)
	assert.ErrorIs(t, err, queryErr)
}

func TestMapperTriggerResolutionDisabled(t *testing.T) {
	ctx := context.Background()

	child := &models.PipelineExecution{
		ID:     "child-1",
		Type:   models.Pipeline,
		Status: models.StatusNotStarted,
		Trigger: models.Trigger{
			Type:              models.TriggerPipeline,
			ParentExecutionID: "parent-1",
		},
	}

	cfg := config.Default()
	cfg.ResolvePipelineTriggers = false

	// A parent reader that fails loudly proves it is never consulted.
	mapper := testMapper(t, cfg, nil, &fakeParentReader{err: errors.New("must not be called")})

	mapped, err := mapper.Map(ctx, models.Pipeline, &sliceIterator{rows: []bodyRow{executionRow(t, child.ID, child)}})
	require.NoError(t, err)
	assert.False(t, mapped[0].Trigger.Resolved)
}

func TestMapperResolvedTriggerNotReResolved(t *testing.T) {
	ctx := context.Background()

	child := &models.PipelineExecution{
		ID:     "child-1",
		Type:   models.Pipeline,
		Status: models.StatusRunning,
		Trigger: models.Trigger{
			Type:               models.TriggerPipeline,
			ParentExecutionID:  "parent-1",
			ParentPipelineName: "already-resolved",
			Resolved:           true,
		},
	}

	mapper := testMapper(t, config.Default(), nil, &fakeParentReader{err: errors.New("must not be called")})

	mapped, err := mapper.Map(ctx, models.Pipeline, &sliceIterator{rows: []bodyRow{executionRow(t, child.ID, child)}})
	require.NoError(t, err)
	assert.Equal(t, "already-resolved", mapped[0].Trigger.ParentPipelineName)
}

func TestMapperRowErrorPropagates(t *testing.T) {
	ctx := context.Background()

	rowErr := errors.New("driver: bad connection")
	mapper := testMapper(t, config.Default(), nil, nil)

	_, err := mapper.Map(ctx, models.Pipeline, &sliceIterator{err: rowErr})
	assert.ErrorIs(t, err, rowErr)
}

func TestMapperUnmappedStageRowIsSkipped(t *testing.T) {
	ctx := context.Background()

	execution := &models.PipelineExecution{
		ID:      "exec-1",
		Type:    models.Pipeline,
		Status:  models.StatusRunning,
		Trigger: models.Trigger{Type: models.TriggerManual},
	}

	// The second row points at an id that never mapped, as happens when an
	// execution body was empty and skipped.
	mapper := testMapper(t, config.Default(), nil, nil)
	mapper.stages = &staticStageReader{rows: []bodyRow{
		stageRowFor(t, "exec-1", &models.StageExecution{ID: "stage-1", RefID: "1"}),
		stageRowFor(t, "exec-gone", &models.StageExecution{ID: "stage-orphan", RefID: "2"}),
	}}

	mapped, err := mapper.Map(ctx, models.Pipeline, &sliceIterator{rows: []bodyRow{executionRow(t, execution.ID, execution)}})
	require.NoError(t, err)
	require.Len(t, mapped, 1)
	require.Len(t, mapped[0].Stages, 1)
	assert.Equal(t, "stage-1", mapped[0].Stages[0].ID)
}

// staticStageReader returns the same rows for any batch.
type staticStageReader struct {
	rows []bodyRow
}

func (f *staticStageReader) stageRows(_ context.Context, _ models.ExecutionType, _ []string) (rowIterator, error) {
	return &sliceIterator{rows: f.rows}, nil
}
