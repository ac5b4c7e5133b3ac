package eventbus

import (
	"context"

	"github.com/edgarulg/orca/pkg/events"
)

// NopEventBus drops all events. Used when no listener infrastructure is
// deployed.
type NopEventBus struct{}

func NewNopEventBus() EventBus {
	return &NopEventBus{}
}

func (eb *NopEventBus) Publish(ctx context.Context, key string, event events.Event) error {
	return nil
}

func (eb *NopEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	return nil
}

func (eb *NopEventBus) Subscribe(ctx context.Context) error {
	return nil
}

func (eb *NopEventBus) Close() error {
	return nil
}
