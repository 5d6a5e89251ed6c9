// Package services – ChatroomService
//
// This file implements the ChatroomService, which manages chatroom lifecycle
// and the cached per-user listing. Creation validates and normalizes names,
// listing is served from the chatroom list cache with a database fallback,
// and any write affecting a user's listing invalidates that user's entry
// synchronously before returning.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/repo"
)

// ChatroomRepo defines the repository contract required by ChatroomService.
type ChatroomRepo interface {
	// CreateChatroom inserts a new chatroom row for the given user.
	CreateChatroom(ctx context.Context, db *gorm.DB, userID, name, description string) (*domain.Chatroom, error)

	// ListChatrooms returns all chatrooms for the user ordered by recency.
	ListChatrooms(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chatroom, error)

	// GetChatroom fetches a chatroom by ID ensuring it belongs to the user.
	GetChatroom(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chatroom, error)

	// CountChatroomMessages returns the number of messages in the room.
	CountChatroomMessages(ctx context.Context, db *gorm.DB, chatroomID string) (int64, error)
}

// ChatroomDetail is a chatroom plus derived read-model fields.
type ChatroomDetail struct {
	domain.Chatroom
	MessageCount int64 `json:"message_count"`
}

// ChatroomService provides chatroom creation, cached listing, and detail
// reads, enforcing ownership constraints throughout.
type ChatroomService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the chatroom repository used by this service.
	Repo ChatroomRepo
	// Cache is the per-user chatroom listing cache.
	Cache *cache.ChatroomListCache

	// NameMaxLen caps stored names by rune length.
	NameMaxLen int
	// DescriptionMaxLen caps stored descriptions by rune length.
	DescriptionMaxLen int
}

// NewChatroomService constructs a ChatroomService with sane defaults.
func NewChatroomService(db *gorm.DB, r ChatroomRepo, c *cache.ChatroomListCache) *ChatroomService {
	return &ChatroomService{
		DB:                db,
		Repo:              r,
		Cache:             c,
		NameMaxLen:        255,
		DescriptionMaxLen: 1000,
	}
}

// Create inserts a new chatroom owned by userID and invalidates the user's
// cached listing so the next List reflects it.
func (s *ChatroomService) Create(ctx context.Context, userID, name, description string) (*domain.Chatroom, error) {
	tr := otel.Tracer("services/ChatroomService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	name = clipRunes(name, s.NameMaxLen)
	description = clipRunes(strings.TrimSpace(description), s.DescriptionMaxLen)

	room, err := s.Repo.CreateChatroom(ctx, s.DB, userID, name, description)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		_ = s.Cache.Invalidate(ctx, userID)
	}
	return room, nil
}

// List returns the user's chatrooms ordered by recency, served from cache
// when a valid entry exists. A miss re-reads the database and repopulates
// the cache with the configured TTL. Cache failures degrade to a plain
// database read rather than failing the request.
func (s *ChatroomService) List(ctx context.Context, userID string) ([]domain.Chatroom, error) {
	tr := otel.Tracer("services/ChatroomService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if s.Cache != nil {
		if rooms, err := s.Cache.Get(ctx, userID); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return rooms, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			span.RecordError(err)
		}
	}

	rooms, err := s.Repo.ListChatrooms(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		_ = s.Cache.Set(ctx, userID, rooms)
	}
	return rooms, nil
}

// Get fetches a single chatroom the user owns, with its message count.
func (s *ChatroomService) Get(ctx context.Context, userID, chatroomID string) (*ChatroomDetail, error) {
	tr := otel.Tracer("services/ChatroomService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("chatroom.id", chatroomID),
		),
	)
	defer span.End()

	room, err := s.Repo.GetChatroom(ctx, s.DB, chatroomID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChatroomNotFound
		}
		return nil, err
	}
	count, err := s.Repo.CountChatroomMessages(ctx, s.DB, chatroomID)
	if err != nil {
		return nil, err
	}
	return &ChatroomDetail{Chatroom: *room, MessageCount: count}, nil
}

// clipRunes truncates s to at most max runes.
func clipRunes(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}

// normalizeName trims whitespace and collapses multiple spaces to one.
func normalizeName(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
