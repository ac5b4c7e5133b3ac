package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// WatermillQueue runs the work queue over any watermill publisher/subscriber
// pair (GoChannel in-process, Kafka in production).
type WatermillQueue struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[MessageKind]Handler
}

func NewWatermillQueue(pub message.Publisher, sub message.Subscriber) *WatermillQueue {
	return &WatermillQueue{
		publisher:  pub,
		subscriber: sub,
		handlers:   make(map[MessageKind]Handler),
	}
}

func (q *WatermillQueue) Push(ctx context.Context, msg Message) error {
	payload, err := Marshal(msg)
	if err != nil {
		return err
	}

	wmsg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	wmsg.Metadata.Set(MessageKindMetadataKey, string(msg.Kind()))

	return q.publisher.Publish(Topic, wmsg)
}

func (q *WatermillQueue) Handle(kind MessageKind, handler Handler) {
	q.handlers[kind] = handler
}

func (q *WatermillQueue) Subscribe(ctx context.Context) error {
	messages, err := q.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	go func() {
		for wmsg := range messages {
			kind := MessageKind(wmsg.Metadata.Get(MessageKindMetadataKey))

			handler, exists := q.handlers[kind]
			if !exists {
				wmsg.Ack()

				continue
			}

			msg, err := Unmarshal(kind, wmsg.Payload)
			if err != nil {
				wmsg.Nack()

				continue
			}

			err = handler(ctx, msg)
			if err != nil {
				wmsg.Nack()

				continue
			}

			wmsg.Ack()
		}
	}()

	return nil
}

func (q *WatermillQueue) Close() error {
	err := q.publisher.Close()
	if err != nil {
		return err
	}

	return q.subscriber.Close()
}
