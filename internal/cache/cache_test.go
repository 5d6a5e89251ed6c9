package cache

import (
	"context"
	"testing"
	"time"

	"chatroom-backend/internal/domain"
)

func TestMemory_GetSetDel(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expected ErrMiss on empty store, got %v", err)
	}
	if err := m.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("Get = %q, %v; want v", got, err)
	}

	if err := m.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := m.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expected ErrMiss after Del, got %v", err)
	}
	// Deleting an absent key is a no-op.
	if err := m.Del(ctx, "k"); err != nil {
		t.Fatalf("second Del should be idempotent: %v", err)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, "k", "v", 10*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("fresh entry should hit: %v", err)
	}

	now = now.Add(10*time.Minute + time.Second)
	if _, err := m.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expired entry should miss, got %v", err)
	}
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	m := NewMemory()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	now = now.Add(1000 * time.Hour)
	if got, err := m.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("zero-TTL entry should persist, got %q, %v", got, err)
	}
}

func TestChatroomListCache_RoundTrip(t *testing.T) {
	c := NewChatroomListCache(NewMemory(), time.Minute)
	ctx := context.Background()

	if _, err := c.Get(ctx, "u1"); err != ErrMiss {
		t.Fatalf("expected ErrMiss before Set, got %v", err)
	}

	rooms := []domain.Chatroom{
		{ID: "c2", UserID: "u1", Name: "recent"},
		{ID: "c1", UserID: "u1", Name: "older"},
	}
	if err := c.Set(ctx, "u1", rooms); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c1" {
		t.Fatalf("round-trip lost order: %+v", got)
	}

	// Listings are per user.
	if _, err := c.Get(ctx, "u2"); err != ErrMiss {
		t.Fatalf("expected ErrMiss for other user, got %v", err)
	}
}

func TestChatroomListCache_InvalidateForcesMiss_AndIsIdempotent(t *testing.T) {
	c := NewChatroomListCache(NewMemory(), time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "u1", []domain.Chatroom{{ID: "c1", UserID: "u1", Name: "n"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := c.Get(ctx, "u1"); err != ErrMiss {
		t.Fatalf("expected guaranteed miss after Invalidate, got %v", err)
	}
	if err := c.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("second Invalidate should behave like the first: %v", err)
	}
}

func TestChatroomListCache_CorruptPayloadIsMiss(t *testing.T) {
	store := NewMemory()
	c := NewChatroomListCache(store, time.Minute)
	ctx := context.Background()

	if err := store.Set(ctx, "chatrooms:u1", "{not json", time.Minute); err != nil {
		t.Fatalf("seed corrupt: %v", err)
	}
	if _, err := c.Get(ctx, "u1"); err != ErrMiss {
		t.Fatalf("corrupt entry should read as miss, got %v", err)
	}
	// And the bad entry is evicted.
	if _, err := store.Get(ctx, "chatrooms:u1"); err != ErrMiss {
		t.Fatalf("corrupt entry should be evicted, got %v", err)
	}
}
