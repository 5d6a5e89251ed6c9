// Package cache provides the key-value cache used for per-user chatroom
// listings. The Store interface keeps callers decoupled from the backend:
// a Redis adapter is used when a Redis URL is configured, and an in-process
// TTL map otherwise. Both are concurrency-safe and hold only derived state;
// the database remains the source of truth.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when no valid, unexpired value exists for a key.
// Callers treat a miss as a signal to re-read from the persistent store.
var ErrMiss = errors.New("cache: miss")

// Store is the minimal contract for a key-value cache. Values are stored as
// strings to keep the interface free of serialization concerns; typed layers
// (see ChatroomListCache) marshal on top of it.
type Store interface {
	// Get fetches the value for key, or ErrMiss when absent/expired.
	// Non-nil errors other than ErrMiss indicate transport failures.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key with the provided TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes one or more keys. Deleting an absent key is not an error,
	// which makes invalidation idempotent.
	Del(ctx context.Context, keys ...string) error

	// Close releases any resources held by the cache.
	Close() error
}
