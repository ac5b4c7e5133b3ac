// Package models defines the execution graph: pipeline executions, their
// stages and tasks, and the trigger variants that start them.
package models

import (
	"sort"

	"github.com/oklog/ulid/v2"
)

// PipelineExecution is a single run of a pipeline or ad-hoc orchestration.
//
// The execution is the query root of the persistence layer: the serialized
// body stored in the relational store contains everything except Stages,
// Partition and Size, which are populated during mapping.
type PipelineExecution struct {
	ID          string            `json:"id"`
	Type        ExecutionType     `json:"type"`
	Application string            `json:"application,omitempty"`
	Name        string            `json:"name,omitempty"`
	Status      ExecutionStatus   `json:"status"`
	Trigger     Trigger           `json:"trigger"`
	Stages      []*StageExecution `json:"-"`

	// Partition labels the shard that owns this execution. It lives in its
	// own column, not in the body.
	Partition string `json:"-"`

	// Size is the byte length of the serialized body as stored. Informational.
	Size int64 `json:"-"`
}

// NewExecutionID returns a new logical execution id. Executions persisted
// before the id migration are still stored under their legacy identifiers;
// the mapper reconciles the two schemes at load time.
func NewExecutionID() string {
	return ulid.Make().String()
}

// StageByID returns the stage with the given id, if attached.
func (e *PipelineExecution) StageByID(id string) (*StageExecution, bool) {
	for _, stage := range e.Stages {
		if stage.ID == id {
			return stage, true
		}
	}

	return nil, false
}

// AttachStage appends a stage to the execution and sets the stage's
// back-reference. Stages are never shared between executions.
func (e *PipelineExecution) AttachStage(stage *StageExecution) {
	stage.execution = e
	e.Stages = append(e.Stages, stage)
}

// SortStages orders the attached stages by RefID ascending, so presentation
// order is independent of storage and arrival order.
func (e *PipelineExecution) SortStages() {
	sort.SliceStable(e.Stages, func(i, j int) bool {
		return e.Stages[i].RefID < e.Stages[j].RefID
	})
}
