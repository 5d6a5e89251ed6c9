package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatroom-backend/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateChatroom_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	room, err := CreateChatroom(context.Background(), db, "u1", "general", "")
	if err == nil || room != nil {
		t.Fatalf("expected error creating without table, got room=%v err=%v", room, err)
	}
}

func TestCreateChatroom_Success_PersistsAndSetsFields(t *testing.T) {
	db := newRepoDB(t, &domain.Chatroom{})

	start := time.Now().UTC().Add(-time.Minute)
	room, err := CreateChatroom(context.Background(), db, "u1", "general", "small talk")
	if err != nil {
		t.Fatalf("CreateChatroom: %v", err)
	}
	if room.ID == "" || room.UserID != "u1" || room.Name != "general" || room.Description != "small talk" {
		t.Fatalf("unexpected Chatroom fields: %+v", room)
	}
	if room.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset/really old: %v", room.CreatedAt)
	}
	// round-trip
	var got domain.Chatroom
	if err := db.First(&got, "id = ?", room.ID).Error; err != nil {
		t.Fatalf("load created chatroom: %v", err)
	}
	if got.UserID != "u1" || got.Name != "general" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestListChatrooms_OrderByRecencyAndFilter(t *testing.T) {
	db := newRepoDB(t, &domain.Chatroom{})

	// Seed with known UpdatedAt so order is deterministic.
	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC) // stale
	t2 := t1.Add(1 * time.Hour)                        // recent
	seed := []domain.Chatroom{
		{ID: "c-old", UserID: "u1", Name: "old", CreatedAt: t1, UpdatedAt: t1},
		{ID: "c-new", UserID: "u1", Name: "new", CreatedAt: t1, UpdatedAt: t2},
		{ID: "c-other", UserID: "u2", Name: "other", CreatedAt: t1, UpdatedAt: t2},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed chatroom %d: %v", i, err)
		}
	}

	got, err := ListChatrooms(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("ListChatrooms: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chatrooms for u1, got %d", len(got))
	}
	if got[0].ID != "c-new" || got[1].ID != "c-old" {
		t.Fatalf("expected recency order [c-new c-old], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestGetChatroom_EnforcesOwnership(t *testing.T) {
	db := newRepoDB(t, &domain.Chatroom{})
	if err := db.Create(&domain.Chatroom{ID: "c1", UserID: "u1", Name: "mine"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := GetChatroom(context.Background(), db, "c1", "u1"); err != nil {
		t.Fatalf("expected owner to fetch chatroom, got %v", err)
	}
	if _, err := GetChatroom(context.Background(), db, "c1", "u2"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
	if _, err := GetChatroom(context.Background(), db, "missing", "u1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestTouchChatroom_AdvancesUpdatedAt(t *testing.T) {
	db := newRepoDB(t, &domain.Chatroom{})
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := db.Create(&domain.Chatroom{ID: "c1", UserID: "u1", Name: "n", UpdatedAt: old}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := TouchChatroom(context.Background(), db, "c1", now); err != nil {
		t.Fatalf("TouchChatroom: %v", err)
	}
	var got domain.Chatroom
	if err := db.First(&got, "id = ?", "c1").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Fatalf("UpdatedAt = %v; want %v", got.UpdatedAt, now)
	}

	if err := TouchChatroom(context.Background(), db, "missing", now); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing chatroom, got %v", err)
	}
}

func TestCountChatroomMessages(t *testing.T) {
	db := newRepoDB(t, &domain.Chatroom{}, &domain.Message{})
	if err := db.Create(&domain.Chatroom{ID: "c1", UserID: "u1", Name: "n"}).Error; err != nil {
		t.Fatalf("seed room: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := CreateMessage(context.Background(), db, "c1", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("seed message %d: %v", i, err)
		}
	}
	n, err := CountChatroomMessages(context.Background(), db, "c1")
	if err != nil {
		t.Fatalf("CountChatroomMessages: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d; want 3", n)
	}
}
