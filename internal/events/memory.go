package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// MemoryBus delivers events to in-process handlers, each on its own
// goroutine. Delivery is at-most-once: handler errors are logged, not retried.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
	inflight sync.WaitGroup
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]Handler)}
}

func (b *MemoryBus) Subscribe(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Publish returns once the payload is encoded and handed to the subscribers.
// Handlers run detached from ctx's cancellation but keep its values.
func (b *MemoryBus) Publish(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	handlers := slices.Clone(b.handlers[event])
	if len(handlers) == 0 {
		slog.Debug("event has no subscribers", "event", event)
		return nil
	}

	dctx := context.WithoutCancel(ctx)
	for _, h := range handlers {
		b.inflight.Add(1)
		go b.deliver(dctx, event, h, data)
	}
	return nil
}

func (b *MemoryBus) deliver(ctx context.Context, event string, h Handler, data []byte) {
	defer b.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "event", event, "panic", r)
		}
	}()

	if err := h(ctx, data); err != nil {
		slog.Error("event handler failed", "event", event, "error", err)
	}
}

// Wait blocks until every delivery in flight, including those published by
// handlers while waiting, has finished.
func (b *MemoryBus) Wait() {
	b.inflight.Wait()
}

// Shutdown stops accepting events and waits for in-flight deliveries.
func (b *MemoryBus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
