// Package eventbus broadcasts lifecycle events to uncoupled external
// listeners (metrics, UI push, audit).
package eventbus

import (
	"context"

	"github.com/edgarulg/orca/pkg/events"
)

type EventHandler func(ctx context.Context, event any) error

// EventBus publishes lifecycle events and lets external listeners subscribe.
// Publication is not part of any transition's correctness: a failed publish
// is logged by the caller and never rolls back persisted state.
type EventBus interface {
	Publish(ctx context.Context, key string, event events.Event) error
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
	Close() error
}
