// Package services – MessageService
//
// This file implements MessageService, the submission orchestrator. A
// submission validates ownership and quota, persists the message in pending
// status, advances the chatroom's recency timestamp, invalidates the caller's
// chatroom list cache, enqueues the processing job, and only then charges
// quota, all before returning. The caller gets the message id immediately
// and polls for the AI response; completion happens out of band in the worker.
//
// Side effects are ordered so that a crash after the insert but before the
// enqueue leaves a message permanently pending: a recoverable inconsistency,
// not a lost write, since the id was already durably assigned.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// chatroom/user identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/repo"
	"chatroom-backend/internal/worker"
)

// MessageService coordinates message submission and the paginated read path.
type MessageService struct {
	DB    *gorm.DB
	Queue queue.Client
	Cache *cache.ChatroomListCache
	Quota *QuotaService

	// MaxMessageRunes caps submissions by rune length.
	MaxMessageRunes int

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// SubmitResult is what the caller receives synchronously: the durably
// assigned id and the initial status.
type SubmitResult struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// Submit runs the submission pipeline for an authenticated user.
//
// Failure modes surfaced to the caller: ErrEmptyMessage/ErrTooLong before any
// side effect, ErrChatroomNotFound for missing or foreign rooms,
// *QuotaExceededError for rate-limited basic users, and raw store/queue
// errors when persistence or enqueueing itself fails (the latter leaves the
// message permanently pending).
func (s *MessageService) Submit(ctx context.Context, userID, chatroomID, text string) (*SubmitResult, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("chatroom.id", chatroomID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	// Normalize & validate before touching anything.
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(text) > s.MaxMessageRunes {
		return nil, ErrTooLong
	}

	// Ownership check: the chatroom must exist and belong to the caller.
	if _, err := repo.GetChatroom(ctx, s.DB, chatroomID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChatroomNotFound
		}
		return nil, err
	}

	// Quota gate, before any mutation.
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if s.Quota != nil {
		if err := s.Quota.Check(ctx, user); err != nil {
			return nil, err
		}
	}

	// Persist the pending row first so the worker always has a row to update.
	msg, err := repo.CreateMessage(ctx, s.DB, chatroomID, text)
	if err != nil {
		return nil, err
	}

	// Recency: listings order by updated_at desc.
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if err := repo.TouchChatroom(ctx, s.DB, chatroomID, now()); err != nil {
		return nil, err
	}

	// The recency change must be visible on the next list fetch. A failed
	// invalidation only delays that until the TTL expires, so the submission
	// proceeds, but the miss must show up in the logs, not just the trace.
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, userID); err != nil {
			span.RecordError(err)
			log.Warn().Err(err).Str("user_id", userID).Msg("chatroom list cache invalidation failed; stale list until TTL expiry")
		}
	}

	// Hand the work to the queue. On failure the message stays pending and
	// the caller sees a server error; quota has not been charged.
	if _, err := s.Queue.Enqueue(ctx, worker.NewMessageTask(msg.ID, chatroomID, userID, text)); err != nil {
		return nil, err
	}

	// Charge quota only for rate-limited tiers, and only now that the job
	// is safely queued.
	if s.Quota != nil && user.SubscriptionTier == domain.TierBasic {
		if err := s.Quota.Increment(ctx, userID); err != nil {
			span.RecordError(err)
			log.Warn().Err(err).Str("user_id", userID).Msg("quota increment failed after enqueue")
		}
	}

	return &SubmitResult{MessageID: msg.ID, Status: domain.StatusPending}, nil
}

// ListPage returns paginated messages for a chatroom the user owns, newest
// first, plus the total count for pagination metadata.
func (s *MessageService) ListPage(ctx context.Context, userID, chatroomID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("chatroom.id", chatroomID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Ensure the chatroom exists and belongs to the caller.
	if _, err := repo.GetChatroom(ctx, s.DB, chatroomID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrChatroomNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, chatroomID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, chatroomID, offset, pageSize)
	return items, total, err
}
