package queue

import "context"

// Handler processes one message. Returning an error signals the transport to
// redeliver; handlers must therefore be idempotent under at-least-once
// delivery.
type Handler func(ctx context.Context, msg Message) error

// Queue is the work-queue transport contract. Handle registrations happen
// during startup, before Subscribe; the handler table is read-only afterwards.
type Queue interface {
	Push(ctx context.Context, msg Message) error
	Handle(kind MessageKind, handler Handler)
	Subscribe(ctx context.Context) error
	Close() error
}
