package cache

import (
	"context"
	"encoding/json"
	"time"

	"chatroom-backend/internal/domain"
)

// chatroomListKey derives the cache key for a user's chatroom listing.
func chatroomListKey(userID string) string {
	return "chatrooms:" + userID
}

// ChatroomListCache is the typed layer over Store for per-user chatroom
// summaries. Entries are JSON-encoded lists with a fixed TTL. The cache is
// never a source of truth: any write affecting a user's listing must call
// Invalidate before the write's effects can be observed, so the staleness
// window for this process's own writes is zero.
type ChatroomListCache struct {
	Store Store
	TTL   time.Duration
}

// NewChatroomListCache wires the typed cache over a backing store.
func NewChatroomListCache(s Store, ttl time.Duration) *ChatroomListCache {
	return &ChatroomListCache{Store: s, TTL: ttl}
}

// Get returns the cached listing for userID, or ErrMiss. Corrupt payloads are
// treated as a miss (and evicted) rather than surfaced: the caller re-reads
// from the database either way.
func (c *ChatroomListCache) Get(ctx context.Context, userID string) ([]domain.Chatroom, error) {
	raw, err := c.Store.Get(ctx, chatroomListKey(userID))
	if err != nil {
		return nil, err
	}
	var out []domain.Chatroom
	if uerr := json.Unmarshal([]byte(raw), &out); uerr != nil {
		_ = c.Store.Del(ctx, chatroomListKey(userID))
		return nil, ErrMiss
	}
	return out, nil
}

// Set stores the listing for userID with the configured TTL.
func (c *ChatroomListCache) Set(ctx context.Context, userID string, rooms []domain.Chatroom) error {
	raw, err := json.Marshal(rooms)
	if err != nil {
		return err
	}
	return c.Store.Set(ctx, chatroomListKey(userID), string(raw), c.TTL)
}

// Invalidate drops the cached listing for userID. Idempotent: invalidating
// twice (or invalidating an absent entry) has the same observable effect.
func (c *ChatroomListCache) Invalidate(ctx context.Context, userID string) error {
	return c.Store.Del(ctx, chatroomListKey(userID))
}
