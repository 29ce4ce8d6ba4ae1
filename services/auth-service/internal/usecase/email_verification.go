package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/car-rental-api/shared/security"
)

// EmailVerificationUsecase confirms user email addresses.
type EmailVerificationUsecase interface {
	// VerifyEmail marks the owner of token as verified and consumes the token.
	VerifyEmail(ctx context.Context, token string) error

	// ResendVerification replaces the verification token of userID and sends it again.
	ResendVerification(ctx context.Context, userID string) error
}

type emailVerificationUsecase struct {
	userRepo       repository.UserRepository
	tokenRepo      repository.SingleUseTokenRepository
	notifier       Notifier
	authServiceCfg *config.AuthServiceConfig
	now            func() time.Time
}

func NewEmailVerificationUsecase(
	userRepo repository.UserRepository,
	tokenRepo repository.SingleUseTokenRepository,
	notifier Notifier,
	authServiceCfg *config.AuthServiceConfig,
	now func() time.Time,
) EmailVerificationUsecase {
	if now == nil {
		now = time.Now
	}

	return &emailVerificationUsecase{
		userRepo:       userRepo,
		tokenRepo:      tokenRepo,
		notifier:       notifier,
		authServiceCfg: authServiceCfg,
		now:            now,
	}
}

func (u *emailVerificationUsecase) VerifyEmail(ctx context.Context, token string) error {
	entry, err := u.tokenRepo.GetTokenByHash(ctx, security.HashToken(token), model.PurposeEmailVerification)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return unavailable(err)
	}

	if entry.Expired(u.now()) {
		if _, err := u.tokenRepo.ConsumeToken(ctx, entry); err != nil {
			return unavailable(err)
		}
		return ErrTokenExpired
	}

	user, err := u.userRepo.GetUser(ctx, entry.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return unavailable(err)
	}

	if user.IsVerified {
		if _, err := u.tokenRepo.ConsumeToken(ctx, entry); err != nil {
			return unavailable(err)
		}
		return ErrEmailAlreadyVerified
	}

	consumed, err := u.tokenRepo.ConsumeToken(ctx, entry)
	if err != nil {
		return unavailable(err)
	}
	if !consumed {
		return ErrInvalidToken
	}

	verified := true
	if _, err := u.userRepo.UpdateUser(ctx, user.ID, repository.UpdateUserParams{IsVerified: &verified}); err != nil {
		return unavailable(err)
	}

	return nil
}

func (u *emailVerificationUsecase) ResendVerification(ctx context.Context, userID string) error {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return unavailable(err)
	}

	if user.IsVerified {
		return ErrEmailAlreadyVerified
	}

	ttl := u.authServiceCfg.Token.EmailVerificationTokenExpiresIn
	token, err := issueSingleUseToken(ctx, u.tokenRepo, user.ID, model.PurposeEmailVerification, ttl, u.now())
	if err != nil {
		return err
	}

	u.notifier.SendEmailVerification(ctx, user, token, ttl)

	return nil
}
