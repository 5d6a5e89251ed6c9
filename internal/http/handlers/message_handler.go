// Message HTTP handlers.
//
// This file exposes REST endpoints for the message pipeline:
//   - POST /chatroom/{id}/message   (submit; async completion)
//   - GET  /chatroom/{id}/messages  (list, paginated, newest first)
//
// Submission returns 200 immediately: the response carries the message id and
// its initial "pending" status, and the AI reply materializes later via the
// background worker. Clients poll the listing endpoint for the outcome.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/services"
)

// SubmitMessageRequest is the JSON payload for submitting a message.
type SubmitMessageRequest struct {
	// Message is the user's prompt text.
	Message string `json:"message" binding:"required" example:"What should I pack for Crete in May?"`
}

// ListMessagesResponse wraps a page of messages and pagination information.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// SubmitMessage accepts a message for asynchronous AI completion.
func (h *Handlers) SubmitMessage(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatroom id must be a UUID")
		return
	}

	var req SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.msgSvc.Submit(c.Request.Context(), userID(c), roomID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrChatroomNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
		default:
			if qe, isQuota := services.AsQuotaExceeded(err); isQuota {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"request_id": c.Writer.Header().Get("X-Request-ID"),
					"code":       ErrCodeQuotaExceeded,
					"message":    qe.Error(),
					"limit":      qe.Limit,
					"used":       qe.Used,
				})
				return
			}
			fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, res)
}

// ListMessages returns a page of messages for a chatroom the user owns,
// newest first.
func (h *Handlers) ListMessages(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatroom id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.msgSvc.ListPage(c.Request.Context(), userID(c), roomID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrChatroomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Message{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
