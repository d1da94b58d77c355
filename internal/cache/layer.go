package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const DefaultTTL = time.Hour

func CourseKey(id uuid.UUID) string         { return "course:" + id.String() }
func CourseChaptersKey(id uuid.UUID) string { return "course:" + id.String() + ":chapters" }
func ChapterKey(id uuid.UUID) string        { return "chapter:" + id.String() }
func DocumentKey(id uuid.UUID) string       { return "document:" + id.String() }

// Entity caches JSON snapshots of T. Cache failures are logged and never
// reach the caller; the loader is the source of truth.
type Entity[T any] struct {
	store Store
	ttl   time.Duration
}

func NewEntity[T any](store Store, ttl time.Duration) *Entity[T] {
	if store == nil {
		store = Noop{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Entity[T]{store: store, ttl: ttl}
}

// Get reads through the cache. On a miss, a cache error or an undecodable
// entry it calls load and repopulates the key.
func (e *Entity[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	raw, err := e.store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		decodeErr := json.Unmarshal(raw, &v)
		if decodeErr == nil {
			return v, nil
		}
		slog.Warn("discarding corrupt cache entry", "key", key, "error", decodeErr)
		e.Invalidate(ctx, key)
	case !errors.Is(err, ErrMiss):
		slog.Warn("cache read failed", "key", key, "error", err)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	e.Set(ctx, key, v)
	return v, nil
}

// Put replaces the cached snapshot: the old entry is deleted before the new
// one is written.
func (e *Entity[T]) Put(ctx context.Context, key string, v T) {
	e.Invalidate(ctx, key)
	e.Set(ctx, key, v)
}

func (e *Entity[T]) Invalidate(ctx context.Context, keys ...string) {
	if err := e.store.Delete(ctx, keys...); err != nil {
		slog.Warn("cache invalidate failed", "keys", keys, "error", err)
	}
}

// Set writes a snapshot without deleting first. Callers that already
// invalidated the key before a store write use it to repopulate.
func (e *Entity[T]) Set(ctx context.Context, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := e.store.Set(ctx, key, data, e.ttl); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}
