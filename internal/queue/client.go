package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/coursegen/internal/config"
	"github.com/nikhilbhutani/coursegen/internal/events"
)

// Bus publishes pipeline events as asynq tasks and routes them back to the
// subscribed handlers inside the worker process.
type Bus struct {
	client   *asynq.Client
	registry *HandlersRegistry
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewBus(cfg config.RedisConfig) *Bus {
	return &Bus{
		client:   asynq.NewClient(RedisOpt(cfg)),
		registry: NewHandlersRegistry(),
	}
}

func (b *Bus) Close() error {
	return b.client.Close()
}

func (b *Bus) Publish(ctx context.Context, event string, payload any) error {
	task, err := NewTask(event, payload)
	if err != nil {
		return err
	}
	info, err := b.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", event, err)
	}
	logEnqueued(info)
	return nil
}

func (b *Bus) Subscribe(event string, h events.Handler) {
	b.registry.Register(event, TaskHandler(h))
}

func (b *Bus) Mux() *asynq.ServeMux {
	return b.registry.Mux()
}

// NewTask encodes payload and attaches the delivery options of event.
func NewTask(event string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(event, data, TaskOptions(event)...), nil
}

// TaskHandler adapts an events.Handler to asynq. Malformed payloads are not
// retried.
func TaskHandler(h events.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		err := h(ctx, t.Payload())
		if errors.Is(err, events.ErrMalformed) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	})
}
