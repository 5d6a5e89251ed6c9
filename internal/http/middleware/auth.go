// Package middleware – JWT authentication.
//
// This file provides Auth, the bearer-token gate for protected routes. It
// parses and validates the Authorization header, then exposes the caller's
// identity and subscription tier to downstream handlers via the Gin context.
//
// Design notes:
//   - Token parsing is delegated through TokenParser so the middleware has no
//     signing-key knowledge of its own and tests can stub verification
//   - Responses for missing, malformed, and invalid tokens are identical on
//     the wire (401 + unauthorized) to avoid leaking token state
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys under which Auth stores the caller's identity.
const (
	CtxUserIDKey = "userID"
	CtxTierKey   = "subscriptionTier"
)

// Identity is the authenticated principal extracted from a valid token.
type Identity struct {
	UserID string
	Tier   string
}

// TokenParser validates a compact token string and returns the identity it
// carries, or an error for anything unverifiable.
type TokenParser func(token string) (Identity, error)

// Auth returns a middleware that requires a valid "Bearer" token on every
// request it guards. On success it stores the user id and tier in the context;
// on failure it aborts with a structured 401.
func Auth(parse TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			unauthorized(c)
			return
		}
		id, err := parse(token)
		if err != nil || id.UserID == "" {
			unauthorized(c)
			return
		}
		c.Set(CtxUserIDKey, id.UserID)
		c.Set(CtxTierKey, id.Tier)
		c.Next()
	}
}

// UserIDFrom returns the authenticated user id stored by Auth, or "".
func UserIDFrom(c *gin.Context) string {
	if v, ok := c.Get(CtxUserIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// TierFrom returns the authenticated subscription tier stored by Auth, or "".
func TierFrom(c *gin.Context) string {
	if v, ok := c.Get(CtxTierKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
// Scheme matching is case-insensitive per RFC 7235.
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func unauthorized(c *gin.Context) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": reqID,
		"code":       "unauthorized",
		"message":    "missing or invalid bearer token",
	})
}
