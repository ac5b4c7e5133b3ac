// Package redisqueue runs the work queue on a Redis list. Push is LPUSH,
// delivery is BRPOP; a message whose handler fails is pushed back for
// redelivery, giving at-least-once semantics.
package redisqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edgarulg/orca/pkg/queue"
)

const defaultPopTimeout = time.Second

// Queue implements queue.Queue on a Redis list.
type Queue struct {
	client   *redis.Client
	key      string
	logger   *slog.Logger
	handlers map[queue.MessageKind]queue.Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New connects to Redis and returns the queue. The list key defaults to the
// queue topic when empty.
func New(ctx context.Context, logger *slog.Logger, redisURL, key string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if key == "" {
		key = queue.Topic
	}

	return &Queue{
		client:   client,
		key:      key,
		logger:   logger,
		handlers: make(map[queue.MessageKind]queue.Handler),
	}, nil
}

func (q *Queue) Push(ctx context.Context, msg queue.Message) error {
	data, err := queue.MarshalEnvelope(msg)
	if err != nil {
		return err
	}

	return q.client.LPush(ctx, q.key, data).Err()
}

func (q *Queue) Handle(kind queue.MessageKind, handler queue.Handler) {
	q.handlers[kind] = handler
}

func (q *Queue) Subscribe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	q.wg.Add(1)

	go func() {
		defer q.wg.Done()
		q.consumeLoop(ctx)
	}()

	return nil
}

func (q *Queue) consumeLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := q.client.BRPop(ctx, defaultPopTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}

			q.logger.ErrorContext(ctx, "failed to pop from queue", "error", err)

			continue
		}

		// BRPop returns [key, value].
		if len(result) != 2 {
			continue
		}

		q.dispatch(ctx, []byte(result[1]))
	}
}

func (q *Queue) dispatch(ctx context.Context, data []byte) {
	msg, err := queue.UnmarshalEnvelope(data)
	if err != nil {
		q.logger.ErrorContext(ctx, "failed to decode queue message", "error", err)

		return
	}

	handler, exists := q.handlers[msg.Kind()]
	if !exists {
		q.logger.WarnContext(ctx, "no handler for message kind", "kind", msg.Kind())

		return
	}

	if err := handler(ctx, msg); err != nil {
		q.logger.ErrorContext(ctx, "handler failed, requeueing message",
			"kind", msg.Kind(),
			"error", err,
		)

		if pushErr := q.client.LPush(ctx, q.key, data).Err(); pushErr != nil {
			q.logger.ErrorContext(ctx, "failed to requeue message", "error", pushErr)
		}
	}
}

func (q *Queue) Close() error {
	if q.cancel != nil {
		q.cancel()
	}

	q.wg.Wait()

	return q.client.Close()
}
