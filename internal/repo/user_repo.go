// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model,
// including the per-day quota counter operations.
//
// The quota counter lives on the user row as (daily_message_count,
// last_message_date). Both mutations below are single conditional UPDATEs so
// concurrent submissions for the same user cannot interleave a read-modify-write.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
)

// CreateUser inserts a new basic-tier account for the mobile number. The
// unique index on mobile_number surfaces duplicates as a constraint error.
func CreateUser(ctx context.Context, db *gorm.DB, mobile, name string) (*domain.User, error) {
	u := &domain.User{
		ID:               uuid.NewString(),
		MobileNumber:     mobile,
		Name:             name,
		SubscriptionTier: domain.TierBasic,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	return u, db.WithContext(ctx).Create(u).Error
}

// GetUser fetches a user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByMobile fetches a user by mobile number, or ErrNotFound.
func GetUserByMobile(ctx context.Context, db *gorm.DB, mobile string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("mobile_number = ?", mobile).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ResetDailyCount zeroes the quota counter and stamps it with today's date,
// but only when the stored date differs. Safe to call concurrently: at most
// one of the racing updates matches the WHERE clause.
func ResetDailyCount(ctx context.Context, db *gorm.DB, userID, today string) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND (last_message_date IS NULL OR last_message_date <> ?)", userID, today).
		Updates(map[string]any{
			"daily_message_count": 0,
			"last_message_date":   today,
		}).Error
}

// IncrementDailyCount bumps today's usage counter in one atomic statement.
// If the stored date is stale the counter restarts at 1 for today, which
// covers a day rollover between the limiter check and the increment.
func IncrementDailyCount(ctx context.Context, db *gorm.DB, userID, today string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"daily_message_count": gorm.Expr(
				"CASE WHEN last_message_date = ? THEN daily_message_count + 1 ELSE 1 END", today),
			"last_message_date": today,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdatePassword replaces the user's password hash.
func UpdatePassword(ctx context.Context, db *gorm.DB, userID, hash string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
