// Package services – AuthService
//
// Authentication is mobile-number based. A user requests a short-lived
// one-time password, then exchanges it for a signed JWT; accounts are
// provisioned on first successful verification. Users who set a password can
// also log in directly with mobile + password.
//
// The OTP is returned in the API response rather than sent over SMS; there is
// no SMS provider in this deployment and the client is expected to relay the
// code itself.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/repo"
)

// mobileRE accepts E.164-style numbers with an optional leading plus.
var mobileRE = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// MinPasswordLen is the minimum accepted password length.
const MinPasswordLen = 8

// AuthClaims is the JWT payload issued on login and OTP verification.
type AuthClaims struct {
	jwt.RegisteredClaims
	Tier string `json:"tier"`
}

// OTPIssue is the result of a send-otp request: the code itself (relayed to
// the client in lieu of SMS delivery) and its expiry.
type OTPIssue struct {
	Code      string    `json:"otp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService issues OTPs and JWTs and manages password credentials.
type AuthService struct {
	DB *gorm.DB

	// JWTSecret signs tokens with HMAC-SHA256.
	JWTSecret []byte
	// JWTTTL is the issued token's lifetime.
	JWTTTL time.Duration
	// OTPTTL is how long an issued code stays valid.
	OTPTTL time.Duration

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, secret []byte, jwtTTL, otpTTL time.Duration) *AuthService {
	return &AuthService{DB: db, JWTSecret: secret, JWTTTL: jwtTTL, OTPTTL: otpTTL, Now: time.Now}
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SendOTP issues a fresh 6-digit code for the mobile number. Issuing a new
// code does not invalidate earlier unexpired ones; each is single-use.
func (s *AuthService) SendOTP(ctx context.Context, mobile string) (*OTPIssue, error) {
	if !mobileRE.MatchString(mobile) {
		return nil, ErrInvalidMobile
	}
	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	expires := s.now().UTC().Add(s.OTPTTL)
	if _, err := repo.CreateOTP(ctx, s.DB, mobile, code, expires); err != nil {
		return nil, err
	}
	return &OTPIssue{Code: code, ExpiresAt: expires}, nil
}

// VerifyOTP exchanges a valid code for a signed token, provisioning a
// basic-tier account on first verification. The code is consumed before the
// token is issued, so it cannot be replayed even if token issuance fails.
func (s *AuthService) VerifyOTP(ctx context.Context, mobile, code string) (string, *domain.User, error) {
	if !mobileRE.MatchString(mobile) {
		return "", nil, ErrInvalidMobile
	}
	otp, err := repo.GetActiveOTP(ctx, s.DB, mobile, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrOTPInvalid
		}
		return "", nil, err
	}
	if s.now().UTC().After(otp.ExpiresAt) {
		return "", nil, ErrOTPExpired
	}
	if err := repo.ConsumeOTP(ctx, s.DB, otp.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Lost a concurrent race for the same code.
			return "", nil, ErrOTPInvalid
		}
		return "", nil, err
	}

	user, err := repo.GetUserByMobile(ctx, s.DB, mobile)
	if errors.Is(err, repo.ErrNotFound) {
		user, err = repo.CreateUser(ctx, s.DB, mobile, "")
	}
	if err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Login authenticates with mobile + password. Missing users and wrong
// passwords are deliberately indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, mobile, password string) (string, *domain.User, error) {
	user, err := repo.GetUserByMobile(ctx, s.DB, mobile)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if user.PasswordHash == "" {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// ChangePassword replaces an authenticated user's password after verifying
// the current one. OTP-only accounts have no current password to verify and
// must use SetPassword instead.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return ErrWeakPassword
	}
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.PasswordHash == "" {
		return ErrNoPasswordSet
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return ErrWrongPassword
	}
	return s.storePassword(ctx, userID, newPassword)
}

// SetPassword gives an OTP-only account its first password. Accounts that
// already have one must go through ChangePassword so the current password is
// verified.
func (s *AuthService) SetPassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return ErrWeakPassword
	}
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.PasswordHash != "" {
		return ErrPasswordAlreadySet
	}
	return s.storePassword(ctx, userID, newPassword)
}

// ForgotPassword issues a password-reset OTP for an existing account. Unlike
// SendOTP it refuses unknown numbers, since there is no account to reset.
// The code is exchanged through the normal VerifyOTP flow.
func (s *AuthService) ForgotPassword(ctx context.Context, mobile string) (*OTPIssue, error) {
	if !mobileRE.MatchString(mobile) {
		return nil, ErrInvalidMobile
	}
	if _, err := repo.GetUserByMobile(ctx, s.DB, mobile); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	expires := s.now().UTC().Add(s.OTPTTL)
	if _, err := repo.CreateOTP(ctx, s.DB, mobile, code, expires); err != nil {
		return nil, err
	}
	return &OTPIssue{Code: code, ExpiresAt: expires}, nil
}

// storePassword hashes and persists a validated password.
func (s *AuthService) storePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := repo.UpdatePassword(ctx, s.DB, userID, string(hash)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// ParseToken validates a signed token and returns its claims. Used by the
// authentication middleware.
func (s *AuthService) ParseToken(token string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.JWTSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// issueToken signs an HS256 JWT carrying the user id and subscription tier.
func (s *AuthService) issueToken(user *domain.User) (string, error) {
	now := s.now().UTC()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.JWTTTL)),
		},
		Tier: user.SubscriptionTier,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}

// generateOTPCode draws a uniform 6-digit code from crypto/rand.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
