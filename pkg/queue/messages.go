// Package queue defines the work-queue message kinds that drive the task
// lifecycle state machine, and the transport-neutral queue contract.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/edgarulg/orca/pkg/models"
)

// MessageKind discriminates queue messages on the wire.
type MessageKind string

const (
	KindStartTask    MessageKind = "task.start"
	KindRunTask      MessageKind = "task.run"
	KindCompleteTask MessageKind = "task.complete"
)

const MessageKindMetadataKey = "message_kind"

// Topic is the work-queue topic for transports that have one.
const Topic = "orca.queue"

// Message is a unit of work addressed to exactly one handler.
type Message interface {
	Kind() MessageKind
}

// TaskPointer locates one task inside one stage of one execution. Every
// message kind carries it.
type TaskPointer struct {
	ExecutionType models.ExecutionType `json:"executionType"`
	ExecutionID   string               `json:"executionId"`
	StageID       string               `json:"stageId"`
	TaskID        string               `json:"taskId"`
}

// StartTask asks the state machine to transition a task out of NOT_STARTED.
type StartTask struct {
	TaskPointer
}

func (m StartTask) Kind() MessageKind {
	return KindStartTask
}

// RunTask asks a worker to invoke the named task implementation.
type RunTask struct {
	TaskPointer

	ImplementingClass string `json:"implementingClass"`
}

func (m RunTask) Kind() MessageKind {
	return KindRunTask
}

// CompleteTask records a task's terminal status and advances the stage.
type CompleteTask struct {
	Origin StartTask              `json:"origin"`
	Status models.ExecutionStatus `json:"status"`
}

func (m CompleteTask) Kind() MessageKind {
	return KindCompleteTask
}

// Marshal serializes a message payload. The kind travels separately, as
// transport metadata or inside the envelope, depending on the backend.
func Marshal(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", msg.Kind(), err)
	}

	return payload, nil
}

// Unmarshal decodes a message payload for a known kind.
func Unmarshal(kind MessageKind, payload []byte) (Message, error) {
	var msg Message

	switch kind {
	case KindStartTask:
		msg = &StartTask{}
	case KindRunTask:
		msg = &RunTask{}
	case KindCompleteTask:
		msg = &CompleteTask{}
	default:
		return nil, fmt.Errorf("unknown message kind %q", kind)
	}

	if err := json.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s message: %w", kind, err)
	}

	return msg, nil
}

// envelope wraps kind and payload together for transports without metadata.
type envelope struct {
	Kind    MessageKind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalEnvelope serializes a message with its kind discriminator inline.
func MarshalEnvelope(msg Message) ([]byte, error) {
	payload, err := Marshal(msg)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(envelope{Kind: msg.Kind(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message envelope: %w", err)
	}

	return data, nil
}

// UnmarshalEnvelope decodes a message produced by MarshalEnvelope.
func UnmarshalEnvelope(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message envelope: %w", err)
	}

	return Unmarshal(env.Kind, env.Payload)
}
