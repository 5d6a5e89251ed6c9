// Chatroom HTTP handlers.
//
// This file exposes REST endpoints for chatroom resources:
//   - POST   /chatroom             (create)
//   - GET    /chatroom             (list, cache-backed, recency ordered)
//   - GET    /chatroom/{id}        (detail with message count)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/http/middleware"
	"chatroom-backend/internal/services"
	"chatroom-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatroomService defines chatroom lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatroomService interface {
	// Create starts a new chatroom for userID.
	Create(ctx context.Context, userID, name, description string) (*domain.Chatroom, error)
	// List returns all chatrooms for a user ordered by recency.
	List(ctx context.Context, userID string) ([]domain.Chatroom, error)
	// Get returns one chatroom the user owns, with its message count.
	Get(ctx context.Context, userID, chatroomID string) (*services.ChatroomDetail, error)
}

// MessageService defines message submission and retrieval operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MessageService interface {
	// Submit validates, persists, and enqueues a message for async completion.
	Submit(ctx context.Context, userID, chatroomID, text string) (*services.SubmitResult, error)
	// ListPage returns a page of messages within a chatroom and the total count.
	ListPage(ctx context.Context, userID, chatroomID string, page, pageSize int) ([]domain.Message, int64, error)
}

// AuthService defines credential and token operations consumed by the auth
// endpoints.
type AuthService interface {
	// SendOTP issues a one-time password for the mobile number.
	SendOTP(ctx context.Context, mobile string) (*services.OTPIssue, error)
	// VerifyOTP exchanges a valid code for a signed token.
	VerifyOTP(ctx context.Context, mobile, code string) (string, *domain.User, error)
	// Login authenticates with mobile + password.
	Login(ctx context.Context, mobile, password string) (string, *domain.User, error)
	// ForgotPassword issues a password-reset code for an existing account.
	ForgotPassword(ctx context.Context, mobile string) (*services.OTPIssue, error)
	// ChangePassword verifies the current password and stores a new one.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	// SetPassword gives an OTP-only account its first password.
	SetPassword(ctx context.Context, userID, newPassword string) error
}

// UserService defines profile and subscription reads.
type UserService interface {
	// Profile returns the account for userID.
	Profile(ctx context.Context, userID string) (*domain.User, error)
	// Subscription reports the user's tier and today's quota usage.
	Subscription(ctx context.Context, userID string) (*services.SubscriptionStatus, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for auth, chatrooms, messages, and users.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	roomSvc ChatroomService
	msgSvc  MessageService
	authSvc AuthService
	userSvc UserService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(roomSvc ChatroomService, msgSvc MessageService, authSvc AuthService, userSvc UserService) *Handlers {
	return &Handlers{roomSvc: roomSvc, msgSvc: msgSvc, authSvc: authSvc, userSvc: userSvc}
}

// userID extracts the authenticated user id set by the auth middleware.
func userID(c *gin.Context) string {
	return middleware.UserIDFrom(c)
}

//
// DTOs
//

// CreateChatroomRequest is the JSON payload for creating a chatroom.
type CreateChatroomRequest struct {
	// Name is the chatroom display name (1–255 chars).
	Name string `json:"name" binding:"required,min=1,max=255" example:"Trip planning"`
	// Description optionally describes the room.
	Description string `json:"description" example:"Planning the Crete trip"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListChatroomsResponse wraps the user's chatrooms.
type ListChatroomsResponse struct {
	Chatrooms []domain.Chatroom `json:"chatrooms"`
	Count     int               `json:"count"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

//
// Handlers
//

// CreateChatroom creates a chatroom for the current user and returns it.
func (h *Handlers) CreateChatroom(c *gin.Context) {
	var req CreateChatroomRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1–255 chars)")
		return
	}

	room, err := h.roomSvc.Create(c.Request.Context(), userID(c), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, services.ErrEmptyName) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1–255 chars)")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, room)
}

// ListChatrooms returns all of the user's chatrooms ordered by recency.
// Served from the per-user listing cache when warm.
func (h *Handlers) ListChatrooms(c *gin.Context) {
	rooms, err := h.roomSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if rooms == nil {
		rooms = []domain.Chatroom{}
	}
	ok(c, http.StatusOK, ListChatroomsResponse{Chatrooms: rooms, Count: len(rooms)})
}

// GetChatroom returns one chatroom with its message count.
func (h *Handlers) GetChatroom(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatroom id must be a UUID")
		return
	}

	detail, err := h.roomSvc.Get(c.Request.Context(), userID(c), roomID)
	if err != nil {
		if errors.Is(err, services.ErrChatroomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, detail)
}
