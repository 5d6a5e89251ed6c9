// Package services – QuotaService
//
// The quota limiter gates message submission for basic-tier accounts using a
// per-day counter stored on the user row. The counter is lazily reset: the
// first check on a new UTC day zeroes it in place, there is no scheduled job.
// Incrementing is a separate, explicit step invoked by the submission service
// only after a message has been queued, so a failed submission never burns
// quota.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/repo"
)

// QuotaService enforces the daily message quota for basic-tier users.
type QuotaService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// DailyLimit is the maximum messages a basic-tier user may submit per
	// UTC calendar day.
	DailyLimit int

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewQuotaService constructs a QuotaService with the given daily limit.
func NewQuotaService(db *gorm.DB, dailyLimit int) *QuotaService {
	return &QuotaService{DB: db, DailyLimit: dailyLimit, Now: time.Now}
}

// today formats the current UTC calendar date the way it is stored on users.
func (s *QuotaService) today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Format("2006-01-02")
}

// Check applies the limiter to the user. Pro-tier users always pass. For
// basic tier, a stale stored date means the effective count is zero and the
// row is lazily reset to today; at or beyond the limit it returns a
// *QuotaExceededError carrying limit and usage.
func (s *QuotaService) Check(ctx context.Context, user *domain.User) error {
	if user.SubscriptionTier != domain.TierBasic {
		return nil
	}
	today := s.today()
	if user.LastMessageDate != today {
		if err := repo.ResetDailyCount(ctx, s.DB, user.ID, today); err != nil {
			return err
		}
		user.DailyMessageCount = 0
		user.LastMessageDate = today
		return nil
	}
	if user.DailyMessageCount >= s.DailyLimit {
		return &QuotaExceededError{Limit: s.DailyLimit, Used: user.DailyMessageCount}
	}
	return nil
}

// Increment records one message against today's counter. Called only for
// basic-tier users, and only after the submission has been enqueued.
func (s *QuotaService) Increment(ctx context.Context, userID string) error {
	return repo.IncrementDailyCount(ctx, s.DB, userID, s.today())
}

// Usage reports (used, limit) for the user as of now. A stale stored date
// reads as zero without mutating the row.
func (s *QuotaService) Usage(user *domain.User) (used, limit int) {
	if user.LastMessageDate != s.today() {
		return 0, s.DailyLimit
	}
	return user.DailyMessageCount, s.DailyLimit
}
