// Auth HTTP handlers.
//
// This file exposes the authentication endpoints:
//   - POST /auth/send-otp          (issue a one-time password)
//   - POST /auth/verify-otp        (exchange code for JWT; provisions accounts)
//   - POST /auth/login             (mobile + password)
//   - POST /auth/forgot-password   (issue a reset code; existing accounts only)
//   - POST /auth/change-password   (authenticated; current password required)
//   - POST /auth/set-password      (authenticated; OTP-only accounts)
//
// There is no SMS integration: send-otp returns the code in the response body
// and the client relays it. Verify-otp creates the account on first use, so
// possession of the mobile number is the only signup requirement.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom-backend/internal/services"
)

// SendOTPRequest is the JSON payload for requesting a one-time password.
type SendOTPRequest struct {
	// MobileNumber in E.164-ish form, e.g. "+306912345678".
	MobileNumber string `json:"mobile_number" binding:"required" example:"+306912345678"`
}

// VerifyOTPRequest is the JSON payload for exchanging a code for a token.
type VerifyOTPRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required" example:"+306912345678"`
	OTP          string `json:"otp" binding:"required" example:"493027"`
}

// LoginRequest is the JSON payload for password login.
type LoginRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required" example:"+306912345678"`
	Password     string `json:"password" binding:"required"`
}

// ForgotPasswordRequest is the JSON payload for requesting a reset code.
type ForgotPasswordRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required" example:"+306912345678"`
}

// ChangePasswordRequest is the JSON payload for replacing a password. The
// current password must be supplied; token possession alone is not enough.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// SetPasswordRequest is the JSON payload for setting a first password on an
// account that authenticated via OTP only.
type SetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

// TokenResponse carries an issued JWT and the account it belongs to.
type TokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Tier   string `json:"subscription_tier"`
}

// SendOTP issues a one-time password for the given mobile number.
func (h *Handlers) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mobile_number required")
		return
	}
	issue, err := h.authSvc.SendOTP(c.Request.Context(), req.MobileNumber)
	if err != nil {
		if errors.Is(err, services.ErrInvalidMobile) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid mobile number")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, issue)
}

// VerifyOTP exchanges a valid code for a signed token.
func (h *Handlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mobile_number and otp required")
		return
	}
	token, user, err := h.authSvc.VerifyOTP(c.Request.Context(), req.MobileNumber, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidMobile):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid mobile number")
		case errors.Is(err, services.ErrOTPExpired):
			fail(c, http.StatusUnauthorized, ErrCodeOTPExpired, "otp expired")
		case errors.Is(err, services.ErrOTPInvalid):
			fail(c, http.StatusUnauthorized, ErrCodeOTPInvalid, "invalid otp")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, TokenResponse{Token: token, UserID: user.ID, Tier: user.SubscriptionTier})
}

// Login authenticates with mobile number and password.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mobile_number and password required")
		return
	}
	token, user, err := h.authSvc.Login(c.Request.Context(), req.MobileNumber, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid mobile number or password")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, TokenResponse{Token: token, UserID: user.ID, Tier: user.SubscriptionTier})
}

// ForgotPassword issues a password-reset code for an existing account. The
// code goes through the normal verify-otp exchange.
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mobile_number required")
		return
	}
	issue, err := h.authSvc.ForgotPassword(c.Request.Context(), req.MobileNumber)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidMobile):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid mobile number")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, issue)
}

// ChangePassword replaces the authenticated user's password after verifying
// the current one.
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "current_password and new_password required")
		return
	}
	if err := h.authSvc.ChangePassword(c.Request.Context(), userID(c), req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrWeakPassword),
			errors.Is(err, services.ErrWrongPassword),
			errors.Is(err, services.ErrNoPasswordSet):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// SetPassword gives the authenticated OTP-only account its first password.
func (h *Handlers) SetPassword(c *gin.Context) {
	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "new_password required")
		return
	}
	if err := h.authSvc.SetPassword(c.Request.Context(), userID(c), req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrWeakPassword),
			errors.Is(err, services.ErrPasswordAlreadySet):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
