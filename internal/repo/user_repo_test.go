package repo

import (
	"context"
	"testing"

	"chatroom-backend/internal/domain"
)

func TestGetUser_AndByMobile(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	u := &domain.User{ID: "u1", MobileNumber: "+15550001111", SubscriptionTier: domain.TierBasic}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	got, err := GetUser(context.Background(), db, "u1")
	if err != nil || got.MobileNumber != "+15550001111" {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}
	got, err = GetUserByMobile(context.Background(), db, "+15550001111")
	if err != nil || got.ID != "u1" {
		t.Fatalf("GetUserByMobile = %+v, %v", got, err)
	}
	if _, err := GetUser(context.Background(), db, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetUserByMobile(context.Background(), db, "+10000000000"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResetDailyCount_OnlyWhenDateDiffers(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	u := &domain.User{
		ID: "u1", MobileNumber: "+1", SubscriptionTier: domain.TierBasic,
		DailyMessageCount: 4, LastMessageDate: "2025-06-01",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	// New day: counter resets and date moves forward.
	if err := ResetDailyCount(context.Background(), db, "u1", "2025-06-02"); err != nil {
		t.Fatalf("ResetDailyCount: %v", err)
	}
	got, _ := GetUser(context.Background(), db, "u1")
	if got.DailyMessageCount != 0 || got.LastMessageDate != "2025-06-02" {
		t.Fatalf("after reset: count=%d date=%q", got.DailyMessageCount, got.LastMessageDate)
	}

	// Same day: a second reset is a no-op even after usage.
	if err := IncrementDailyCount(context.Background(), db, "u1", "2025-06-02"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := ResetDailyCount(context.Background(), db, "u1", "2025-06-02"); err != nil {
		t.Fatalf("same-day reset: %v", err)
	}
	got, _ = GetUser(context.Background(), db, "u1")
	if got.DailyMessageCount != 1 {
		t.Fatalf("same-day reset clobbered counter: %d", got.DailyMessageCount)
	}
}

func TestIncrementDailyCount_SameDayAndRollover(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	u := &domain.User{
		ID: "u1", MobileNumber: "+1", SubscriptionTier: domain.TierBasic,
		DailyMessageCount: 2, LastMessageDate: "2025-06-01",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Same day: plain increment.
	if err := IncrementDailyCount(context.Background(), db, "u1", "2025-06-01"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	got, _ := GetUser(context.Background(), db, "u1")
	if got.DailyMessageCount != 3 {
		t.Fatalf("count = %d; want 3", got.DailyMessageCount)
	}

	// Day rollover between check and increment: counter restarts at 1.
	if err := IncrementDailyCount(context.Background(), db, "u1", "2025-06-02"); err != nil {
		t.Fatalf("rollover increment: %v", err)
	}
	got, _ = GetUser(context.Background(), db, "u1")
	if got.DailyMessageCount != 1 || got.LastMessageDate != "2025-06-02" {
		t.Fatalf("after rollover: count=%d date=%q", got.DailyMessageCount, got.LastMessageDate)
	}

	if err := IncrementDailyCount(context.Background(), db, "missing", "2025-06-02"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	if err := db.Create(&domain.User{ID: "u1", MobileNumber: "+1"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := UpdatePassword(context.Background(), db, "u1", "new-hash"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	got, _ := GetUser(context.Background(), db, "u1")
	if got.PasswordHash != "new-hash" {
		t.Fatalf("hash = %q; want new-hash", got.PasswordHash)
	}
	if err := UpdatePassword(context.Background(), db, "missing", "h"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
