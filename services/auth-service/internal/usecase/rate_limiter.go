package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

// RateLimiter tracks failed logins per identifier and enforces a temporary lockout.
//
// The lockout is set lazily: RecordFailure only counts, and the Check that follows
// the threshold-reaching failure is the one that opens the window. With the
// defaults five failures are recorded and the sixth attempt is rejected.
type RateLimiter interface {
	// Check fails with ErrAccountLocked while a lockout is active, or opens one
	// when the failure count has reached the maximum.
	Check(ctx context.Context, identifier string) error

	// RecordFailure adds one failed attempt for identifier.
	RecordFailure(ctx context.Context, identifier string) error

	// Reset clears the record of identifier.
	Reset(ctx context.Context, identifier string) error
}

type rateLimiter struct {
	attemptRepo repository.LoginAttemptRepository
	cfg         config.RateLimitConfig
	now         func() time.Time
}

// NewRateLimiter creates a RateLimiter. now defaults to time.Now.
func NewRateLimiter(
	attemptRepo repository.LoginAttemptRepository,
	cfg config.RateLimitConfig,
	now func() time.Time,
) RateLimiter {
	if now == nil {
		now = time.Now
	}

	return &rateLimiter{
		attemptRepo: attemptRepo,
		cfg:         cfg,
		now:         now,
	}
}

func (u *rateLimiter) Check(ctx context.Context, identifier string) error {
	key := normalizeIdentifier(identifier)

	attempt, err := u.attemptRepo.GetLoginAttempt(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return unavailable(err)
	}

	now := u.now()
	if attempt.IsLocked(now) {
		return ErrAccountLocked
	}

	// The window has passed; start counting again from zero.
	if attempt.LockExpired(now) {
		if err := u.attemptRepo.DeleteLoginAttempt(ctx, key); err != nil {
			return unavailable(err)
		}
		return nil
	}

	if attempt.FailedCount >= u.cfg.MaxLoginAttempts {
		if err := u.attemptRepo.SetLockout(ctx, key, now.Add(u.cfg.LockoutDuration)); err != nil {
			// Reset by a concurrent successful login.
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return unavailable(err)
		}
		return ErrAccountLocked
	}

	return nil
}

func (u *rateLimiter) RecordFailure(ctx context.Context, identifier string) error {
	if _, err := u.attemptRepo.IncrementFailures(ctx, normalizeIdentifier(identifier)); err != nil {
		return unavailable(err)
	}
	return nil
}

func (u *rateLimiter) Reset(ctx context.Context, identifier string) error {
	if err := u.attemptRepo.DeleteLoginAttempt(ctx, normalizeIdentifier(identifier)); err != nil {
		return unavailable(err)
	}
	return nil
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
