package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/repo"
)

// SubscriptionStatus is the read model behind the subscription endpoint:
// tier, billing status, and today's quota usage.
type SubscriptionStatus struct {
	Tier       string `json:"tier"`
	Status     string `json:"status"`
	DailyUsed  int    `json:"daily_used"`
	DailyLimit int    `json:"daily_limit"`
	Unlimited  bool   `json:"unlimited"`
}

// UserService serves profile and subscription reads.
type UserService struct {
	DB    *gorm.DB
	Quota *QuotaService
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, quota *QuotaService) *UserService {
	return &UserService{DB: db, Quota: quota}
}

// Profile returns the account for userID.
func (s *UserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Subscription reports the user's tier and today's quota usage. Pro users
// are unlimited; their usage fields are zeroed rather than tracked.
func (s *UserService) Subscription(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := &SubscriptionStatus{
		Tier:   user.SubscriptionTier,
		Status: user.SubscriptionStatus,
	}
	if user.SubscriptionTier == domain.TierPro {
		st.Unlimited = true
		return st, nil
	}
	st.DailyUsed, st.DailyLimit = s.Quota.Usage(user)
	return st, nil
}
