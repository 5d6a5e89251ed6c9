// Package domain defines the persistence models for users, chatrooms,
// messages, and one-time passwords. These types are mapped with GORM and
// form the core data layer of the chatroom backend.
package domain

import (
	"time"
)

// Subscription tiers. Basic users are subject to a daily message quota;
// pro users are not.
const (
	TierBasic = "basic"
	TierPro   = "pro"
)

// Message processing statuses. The lifecycle is strictly forward-moving:
// pending → processing → completed|failed. A failed message may re-enter
// processing when the queue redelivers its job; a completed message is final.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// User represents an account identified by mobile number. The subscription
// tier controls quota enforcement, and the daily counter pair
// (DailyMessageCount, LastMessageDate) backs the quota limiter.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - MobileNumber: unique login identity (E.164-ish string).
//   - PasswordHash: bcrypt hash; empty when the user only logs in via OTP.
//   - SubscriptionTier: "basic" or "pro" (enforced by DB constraint).
//   - SubscriptionStatus: "inactive" or "active".
//   - DailyMessageCount: messages submitted on LastMessageDate. Meaningful
//     only when LastMessageDate equals the current UTC date; otherwise the
//     effective count is zero and the limiter lazily resets it.
//   - LastMessageDate: calendar date ("2006-01-02", UTC) the counter applies to.
type User struct {
	ID                 string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	MobileNumber       string    `json:"mobile_number"       gorm:"type:varchar(20);not null;uniqueIndex"`
	Name               string    `json:"name"                gorm:"type:varchar(255)"`
	Email              string    `json:"email"               gorm:"type:varchar(255)"`
	PasswordHash       string    `json:"-"                   gorm:"type:varchar(255)"`
	SubscriptionTier   string    `json:"subscription_tier"   gorm:"type:varchar(16);not null;default:'basic';check:subscription_tier IN ('basic','pro')"`
	SubscriptionStatus string    `json:"subscription_status" gorm:"type:varchar(16);not null;default:'inactive'"`
	DailyMessageCount  int       `json:"daily_message_count" gorm:"not null;default:0"`
	LastMessageDate    string    `json:"last_message_date"   gorm:"type:varchar(10)"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Chatroom represents a conversation container owned by exactly one user.
// Ownership is immutable after creation. UpdatedAt advances whenever a
// message is submitted into the room, which drives recency ordering in
// chatroom listings.
type Chatroom struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"     gorm:"type:char(36);not null;index:idx_user_chatrooms"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Chatroom.
func (Chatroom) TableName() string { return "chatrooms" }

// Message represents a single user submission within a chatroom and the
// eventual AI reply. Created in "pending" status by the submission service;
// mutated only by the completion worker.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ChatroomID: foreign key to the owning chatroom (indexed).
//   - UserMessage: original user text (1–4000 chars, enforced upstream).
//   - AIResponse: generated reply; nil until the worker completes the job.
//   - Status: one of pending/processing/completed/failed (DB constraint).
//   - Chatroom: FK association, ensures cascade delete.
type Message struct {
	ID          string    `json:"id"             gorm:"type:char(36);primaryKey"`
	ChatroomID  string    `json:"chatroom_id"    gorm:"type:char(36);not null;index:idx_chatroom_msgs,priority:1"`
	UserMessage string    `json:"user_message"   gorm:"type:text;not null"`
	AIResponse  *string   `json:"ai_response"    gorm:"type:text"`
	Status      string    `json:"message_status" gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','processing','completed','failed')"`
	CreatedAt   time.Time `json:"created_at"     gorm:"index:idx_chatroom_msgs,priority:2"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Chatroom is the parent room. Messages are cascade-deleted if their
	// chatroom is removed.
	Chatroom Chatroom `json:"-" gorm:"foreignKey:ChatroomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// OTP represents a one-time password issued for a mobile number. Codes are
// single-use and expire after a configured interval.
type OTP struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	MobileNumber string    `json:"mobile_number" gorm:"type:varchar(20);not null;index"`
	Code         string    `json:"-"             gorm:"type:varchar(6);not null"`
	ExpiresAt    time.Time `json:"expires_at"    gorm:"not null"`
	Used         bool      `json:"-"             gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for OTP.
func (OTP) TableName() string { return "otps" }
