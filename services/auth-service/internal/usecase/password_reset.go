package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/car-rental-api/shared/security"
)

// PasswordResetUsecase defines the business logic for password reset token operations.
type PasswordResetUsecase interface {
	// RequestPasswordReset initiates the password reset process for a given email.
	// Unknown emails succeed without side effects. For known emails the token is
	// stored and sent in the background, so both cases cost one user lookup.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword replaces the password of the user owning email when token
	// is their current reset token, then signs the user out everywhere.
	ResetPassword(ctx context.Context, email, token, newPassword string) error

	// ValidatePasswordResetToken runs the checks of ResetPassword without consuming the token.
	ValidatePasswordResetToken(ctx context.Context, email, token string) error
}

type passwordResetUsecase struct {
	userRepo       repository.UserRepository
	tokenRepo      repository.SingleUseTokenRepository
	tokenIssuer    TokenIssuer
	notifier       Notifier
	background     Background
	authServiceCfg *config.AuthServiceConfig
	now            func() time.Time
}

// resetIssueTimeout bounds the detached token write started by RequestPasswordReset.
const resetIssueTimeout = 30 * time.Second

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	tokenRepo repository.SingleUseTokenRepository,
	tokenIssuer TokenIssuer,
	notifier Notifier,
	background Background,
	authServiceCfg *config.AuthServiceConfig,
	now func() time.Time,
) PasswordResetUsecase {
	if now == nil {
		now = time.Now
	}

	return &passwordResetUsecase{
		userRepo:       userRepo,
		tokenRepo:      tokenRepo,
		tokenIssuer:    tokenIssuer,
		notifier:       notifier,
		background:     background,
		authServiceCfg: authServiceCfg,
		now:            now,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := u.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// To prevent email enumeration, do not reveal that the email does not exist.
			return nil
		}
		return unavailable(err)
	}

	detached := context.WithoutCancel(ctx)
	u.background.Go(func() {
		ctx, cancel := context.WithTimeout(detached, resetIssueTimeout)
		defer cancel()

		ttl := u.authServiceCfg.Token.PasswordResetTokenExpiresIn
		token, err := issueSingleUseToken(ctx, u.tokenRepo, user.ID, model.PurposePasswordReset, ttl, u.now())
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("failed to issue password reset token")
			return
		}

		u.notifier.SendPasswordReset(ctx, user, token, ttl)
	})

	return nil
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	user, resetToken, err := u.checkToken(ctx, email, token)
	if err != nil {
		return err
	}

	// Hash before consuming so a hashing failure leaves the token usable.
	passwordHash, err := hashPassword(newPassword, u.authServiceCfg.BcryptCost)
	if err != nil {
		return err
	}

	// Revoked before the token is consumed, so a failure here leaves the reset retryable.
	if err := u.tokenIssuer.RevokeAll(ctx, user.ID); err != nil {
		return err
	}

	consumed, err := u.tokenRepo.ConsumeToken(ctx, resetToken)
	if err != nil {
		return unavailable(err)
	}
	if !consumed {
		return ErrInvalidToken
	}

	if _, err := u.userRepo.UpdateUser(ctx, user.ID, repository.UpdateUserParams{
		PasswordHash: &passwordHash,
	}); err != nil {
		return unavailable(err)
	}

	// Catches a login that raced in with the old password after the first revoke.
	if err := u.tokenIssuer.RevokeAll(ctx, user.ID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("failed to revoke sessions after password reset")
	}

	return nil
}

func (u *passwordResetUsecase) ValidatePasswordResetToken(ctx context.Context, email, token string) error {
	_, _, err := u.checkToken(ctx, email, token)
	return err
}

func (u *passwordResetUsecase) checkToken(
	ctx context.Context,
	email, token string,
) (*model.User, *model.SingleUseToken, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, unavailable(err)
	}

	resetToken, err := u.tokenRepo.GetTokenByUser(ctx, user.ID, model.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, unavailable(err)
	}

	if resetToken.Expired(u.now()) {
		return nil, nil, ErrTokenExpired
	}

	if !security.TokenMatchesHash(token, resetToken.TokenHash) {
		return nil, nil, ErrInvalidToken
	}

	return user, resetToken, nil
}
