// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for one-time
// passwords.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
)

// CreateOTP inserts a new one-time password for a mobile number.
func CreateOTP(ctx context.Context, db *gorm.DB, mobile, code string, expiresAt time.Time) (*domain.OTP, error) {
	o := &domain.OTP{
		ID:           uuid.NewString(),
		MobileNumber: mobile,
		Code:         code,
		ExpiresAt:    expiresAt.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// GetActiveOTP returns the most recent unused, matching code for the mobile
// number regardless of expiry (the service distinguishes expired from
// invalid). ErrNotFound when no unused code matches.
func GetActiveOTP(ctx context.Context, db *gorm.DB, mobile, code string) (*domain.OTP, error) {
	var o domain.OTP
	err := db.WithContext(ctx).
		Where("mobile_number = ? AND code = ? AND used = ?", mobile, code, false).
		Order("created_at desc").
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ConsumeOTP marks a code as used. The used = false guard makes the code
// single-use even under concurrent verification attempts: only one caller
// sees RowsAffected > 0.
func ConsumeOTP(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.OTP{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
