// User HTTP handlers.
//
// This file exposes the authenticated account endpoints:
//   - GET /user/me              (profile)
//   - GET /subscription/status  (tier + daily quota usage)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom-backend/internal/services"
)

// Me returns the authenticated user's profile.
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.userSvc.Profile(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, user)
}

// SubscriptionStatus returns the user's tier and today's quota usage.
func (h *Handlers) SubscriptionStatus(c *gin.Context) {
	st, err := h.userSvc.Subscription(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}
