// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chatroom
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a chatroom is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by higher-level services
// (see services.ChatroomService and services.MessageService) which enforce
// business rules, caching, and quota behavior.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateChatroom inserts a new Chatroom row owned by userID. The chatroom ID
// is a randomly generated UUID (string), and CreatedAt/UpdatedAt are set to UTC.
//
// On success, it returns the persisted Chatroom. On failure, it returns a DB error.
func CreateChatroom(ctx context.Context, db *gorm.DB, userID, name, description string) (*domain.Chatroom, error) {
	now := time.Now().UTC()
	c := &domain.Chatroom{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListChatrooms returns all chatrooms belonging to userID, ordered by
// UpdatedAt descending (most recently active first). It returns an empty
// slice if the user has no chatrooms. On DB error, it returns the error.
func ListChatrooms(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chatroom, error) {
	var out []domain.Chatroom
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}

// GetChatroom fetches a single chatroom by its ID and owner (userID). If the
// record does not exist or belongs to another user, it returns ErrNotFound.
// On other DB errors, the raw error is returned.
func GetChatroom(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chatroom, error) {
	var c domain.Chatroom
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// TouchChatroom advances the chatroom's UpdatedAt to now (UTC). Submission
// calls this so recency ordering in listings reflects the latest message.
// If no rows are affected (chatroom missing), it returns ErrNotFound.
func TouchChatroom(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Chatroom{}).
		Where("id = ?", id).
		Update("updated_at", now.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountChatroomMessages returns the number of messages inside a chatroom.
// Uses a raw COUNT so a missing table surfaces as an error.
func CountChatroomMessages(ctx context.Context, db *gorm.DB, chatroomID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE chatroom_id = ?", chatroomID).
		Scan(&total).Error
	return total, err
}
