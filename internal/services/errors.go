// Package services defines the business logic for chatrooms, messages,
// quotas, and authentication. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrChatroomNotFound indicates that the requested chatroom does not
	// exist or is not owned by the current user.
	ErrChatroomNotFound = errors.New("chatroom not found")

	// ErrMessageNotFound indicates that the referenced message row is missing.
	ErrMessageNotFound = errors.New("message not found")

	// ErrUserNotFound indicates that no account exists for the identity.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmptyMessage is returned when a submission contains no text after
	// normalization.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a submission exceeds the configured
	// maximum length.
	ErrTooLong = errors.New("message too long")

	// ErrEmptyName is returned when a chatroom is created without a name.
	ErrEmptyName = errors.New("chatroom name is empty")

	// ErrInvalidCredentials is returned on password login failures. It is
	// deliberately indistinguishable between unknown number and wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid mobile number or password")

	// ErrOTPInvalid is returned when no unused matching code exists.
	ErrOTPInvalid = errors.New("invalid otp")

	// ErrOTPExpired is returned when the matching code has passed its expiry.
	ErrOTPExpired = errors.New("otp expired")

	// ErrInvalidMobile is returned when the mobile number fails validation.
	ErrInvalidMobile = errors.New("invalid mobile number")

	// ErrWeakPassword is returned when a new password is below the minimum
	// length.
	ErrWeakPassword = errors.New("password too short")

	// ErrWrongPassword is returned by ChangePassword when the supplied
	// current password does not match the stored hash.
	ErrWrongPassword = errors.New("current password is incorrect")

	// ErrNoPasswordSet is returned by ChangePassword for OTP-only accounts;
	// such accounts must call SetPassword first.
	ErrNoPasswordSet = errors.New("no password set for this account")

	// ErrPasswordAlreadySet is returned by SetPassword when the account
	// already has a password; use ChangePassword instead.
	ErrPasswordAlreadySet = errors.New("password already set")
)

// QuotaExceededError is returned by the quota limiter when a basic-tier user
// has reached the daily message cap. It carries the limit and current usage
// so handlers can produce a descriptive 429.
type QuotaExceededError struct {
	Limit int
	Used  int
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily limit of %d messages reached (used %d); upgrade to pro for unlimited access", e.Limit, e.Used)
}

// AsQuotaExceeded unwraps err into a *QuotaExceededError if it is one.
func AsQuotaExceeded(err error) (*QuotaExceededError, bool) {
	var qe *QuotaExceededError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}
