// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model, including the status transitions driven by the completion worker.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
)

// CreateMessage inserts a new message row in "pending" status and returns it.
// The submission service calls this before enqueueing the processing job so
// the worker always has a row to update.
func CreateMessage(ctx context.Context, db *gorm.DB, chatroomID, userMessage string) (*domain.Message, error) {
	m := &domain.Message{
		ID:          uuid.NewString(),
		ChatroomID:  chatroomID,
		UserMessage: userMessage,
		Status:      domain.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// GetMessage fetches a message by ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMessageProcessing moves a message into "processing". The guard excludes
// completed rows so a redelivered job can never revert a finished message;
// failed rows are allowed back in (retry re-enters processing).
func MarkMessageProcessing(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status <> ?", id, domain.StatusCompleted).
		Update("status", domain.StatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CompleteMessage records the AI response and moves the message to
// "completed" in a single update.
func CompleteMessage(ctx context.Context, db *gorm.DB, id, response string) error {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"ai_response": response,
			"status":      domain.StatusCompleted,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FailMessage moves the message to "failed". Completed rows are left alone:
// a late or duplicate failure signal must not undo a successful completion.
func FailMessage(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status <> ?", id, domain.StatusCompleted).
		Update("status", domain.StatusFailed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, chatroomID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE chatroom_id = ?", chatroomID).
		Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered by CreatedAt descending
// (newest first, mirroring the read API) with ID as a deterministic tiebreak.
func ListMessagesPage(ctx context.Context, db *gorm.DB, chatroomID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("chatroom_id = ?", chatroomID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
