// Package events defines the lifecycle events broadcast to external
// listeners. Publication is fire-and-forget and happens only after the
// transition's write-of-record; listeners must tolerate duplicates.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/edgarulg/orca/pkg/models"
)

type EventType string

// Topic for lifecycle events.
const Topic = "orca.events"

const EventTypeMetadataKey = "event_type"

const (
	TaskStartedEvent   EventType = "task.started"
	TaskCompleteEvent  EventType = "task.complete"
	StageCompleteEvent EventType = "stage.complete"
)

// Event is implemented by all lifecycle events.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID            string               `json:"id"`
	Type          EventType            `json:"type"`
	Timestamp     time.Time            `json:"timestamp"`
	ExecutionType models.ExecutionType `json:"execution_type"`
	ExecutionID   string               `json:"execution_id"`
	StageID       string               `json:"stage_id"`
}

func NewBaseEvent(eventType EventType, executionType models.ExecutionType, executionID, stageID string) BaseEvent {
	return BaseEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		ExecutionType: executionType,
		ExecutionID:   executionID,
		StageID:       stageID,
	}
}

type TaskStarted struct {
	BaseEvent

	TaskID string `json:"task_id"`
}

func (e TaskStarted) GetType() EventType {
	return TaskStartedEvent
}

type TaskComplete struct {
	BaseEvent

	TaskID string                 `json:"task_id"`
	Status models.ExecutionStatus `json:"status"`
}

func (e TaskComplete) GetType() EventType {
	return TaskCompleteEvent
}

type StageComplete struct {
	BaseEvent

	Status models.ExecutionStatus `json:"status"`
}

func (e StageComplete) GetType() EventType {
	return StageCompleteEvent
}
