package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store backed by a mutex-guarded map with per-entry
// expiry. Expired entries are dropped lazily on read and opportunistically
// swept when the map grows. It mirrors the semantics of the Redis adapter
// closely enough that the two are interchangeable behind Store.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry

	// now is a clock seam for tests.
	now func() time.Time
}

type memEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// sweepThreshold bounds map growth between opportunistic sweeps.
const sweepThreshold = 1024

// NewMemory constructs an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

var _ Store = (*Memory)(nil)

// Get returns the value for key, or ErrMiss when absent or expired.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", ErrMiss
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return "", ErrMiss
	}
	return e.value, nil
}

// Set stores value at key. Last write wins under concurrent Set races.
func (m *Memory) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.entries[key] = memEntry{value: value, expiresAt: exp}
	if len(m.entries) > sweepThreshold {
		m.sweepLocked()
	}
	return nil
}

// Del removes keys. Removing an absent key is a no-op.
func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Close drops all entries.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memEntry)
	return nil
}

// sweepLocked removes expired entries. Caller must hold mu.
func (m *Memory) sweepLocked() {
	now := m.now()
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
