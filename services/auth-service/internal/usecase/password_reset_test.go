package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/car-rental-api/shared/auth"
	"github.com/vasapolrittideah/car-rental-api/shared/security"
)

func TestPasswordResetUsecase_RequestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "Passw0rd!")

	t.Run("unknown email", func(t *testing.T) {
		require.NoError(t, env.passwordReset.RequestPasswordReset(ctx, "ghost@x.com"))
		assert.Empty(t, env.notifier.resets)
	})

	t.Run("known email", func(t *testing.T) {
		require.NoError(t, env.passwordReset.RequestPasswordReset(ctx, "A@x.com"))

		sent := env.notifier.lastReset(t)
		assert.Equal(t, registered.User.ID, sent.UserID)
		assert.Len(t, sent.Token, 64)
		assert.Equal(t, 10*time.Minute, sent.ExpiresIn)

		entry, err := env.store.SingleUseTokens.GetTokenByUser(ctx, registered.User.ID, model.PurposePasswordReset)
		require.NoError(t, err)
		assert.Equal(t, security.HashToken(sent.Token), entry.TokenHash)
		assert.Equal(t, env.clock.Now().Add(10*time.Minute), entry.ExpiresAt)
	})
}

func TestPasswordResetUsecase_ResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "Passw0rd!")
	login, err := env.auth.Login(ctx, LoginParams{Email: "a@x.com", Password: "Passw0rd!"})
	require.NoError(t, err)

	require.NoError(t, env.passwordReset.RequestPasswordReset(ctx, "a@x.com"))
	token := env.notifier.lastReset(t).Token

	assert.ErrorIs(t,
		env.passwordReset.ResetPassword(ctx, "ghost@x.com", token, "N3wPassw0rd!"),
		ErrUserNotFound)
	assert.ErrorIs(t,
		env.passwordReset.ResetPassword(ctx, "a@x.com", "wrong-token", "N3wPassw0rd!"),
		ErrInvalidToken)

	require.NoError(t, env.passwordReset.ResetPassword(ctx, "a@x.com", token, "N3wPassw0rd!"))

	// Single use.
	assert.ErrorIs(t,
		env.passwordReset.ResetPassword(ctx, "a@x.com", token, "Another1!"),
		ErrInvalidToken)

	// Every session is revoked.
	for _, refreshToken := range []string{registered.Tokens.RefreshToken, login.Tokens.RefreshToken} {
		_, err := env.auth.Refresh(ctx, refreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}

	_, err = env.auth.Login(ctx, LoginParams{Email: "a@x.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, LoginParams{Email: "a@x.com", Password: "N3wPassw0rd!"})
	assert.NoError(t, err)
}

func TestPasswordResetUsecase_ResetPassword_NoEntry(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "Passw0rd!")

	err := env.passwordReset.ResetPassword(context.Background(), "a@x.com", "anything", "N3wPassw0rd!")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordResetUsecase_ResetPassword_Expired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a@x.com", "Passw0rd!")

	require.NoError(t, env.passwordReset.RequestPasswordReset(ctx, "a@x.com"))
	token := env.notifier.lastReset(t).Token

	env.clock.Advance(10 * time.Minute)
	require.NoError(t, env.passwordReset.ValidatePasswordResetToken(ctx, "a@x.com", token))

	env.clock.Advance(time.Second)
	assert.ErrorIs(t, env.passwordReset.ResetPassword(ctx, "a@x.com", token, "N3wPassw0rd!"), ErrTokenExpired)

	// Expiry is reported before the hash comparison.
	assert.ErrorIs(t, env.passwordReset.ResetPassword(ctx, "a@x.com", "wrong", "N3wPassw0rd!"), ErrTokenExpired)
}

func TestPasswordResetUsecase_NewRequestReplacesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a@x.com", "Passw0rd!")

	require.NoError(t, env.passwordReset.RequestPasswordReset(ctx, "a@x.com"))
	first := env.notifier.lastReset(t).Token
	require.NoError(t, env.passwordReset.RequestPasswordReset(ctx, "a@x.com"))
	second := env.notifier.lastReset(t).Token

	assert.ErrorIs(t, env.passwordReset.ValidatePasswordResetToken(ctx, "a@x.com", first), ErrInvalidToken)
	assert.NoError(t, env.passwordReset.ValidatePasswordResetToken(ctx, "a@x.com", second))
}

func TestPasswordResetUsecase_ValidateDoesNotConsume(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a@x.com", "Passw0rd!")

	require.NoError(t, env.passwordReset.RequestPasswordReset(ctx, "a@x.com"))
	token := env.notifier.lastReset(t).Token

	require.NoError(t, env.passwordReset.ValidatePasswordResetToken(ctx, "a@x.com", token))
	require.NoError(t, env.passwordReset.ValidatePasswordResetToken(ctx, "a@x.com", token))
	assert.NoError(t, env.passwordReset.ResetPassword(ctx, "a@x.com", token, "N3wPassw0rd!"))
}

func TestPasswordResetUsecase_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := env.passwordReset.RequestPasswordReset(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

// revokeFailingRepo fails DeleteUserRefreshTokens while failing is set.
type revokeFailingRepo struct {
	repository.RefreshTokenRepository

	mu      sync.Mutex
	failing bool
}

func (r *revokeFailingRepo) setFailing(failing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = failing
}

func (r *revokeFailingRepo) DeleteUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	failing := r.failing
	r.mu.Unlock()

	if failing {
		return 0, errors.New("store down")
	}
	return r.RefreshTokenRepository.DeleteUserRefreshTokens(ctx, userID)
}

func TestPasswordResetUsecase_ResetPassword_RevokeFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "Passw0rd!")

	refreshRepo := &revokeFailingRepo{RefreshTokenRepository: env.store.RefreshTokens, failing: true}
	jwtAuth := auth.NewJWTAuthenticator(env.cfg.Token.Audience, env.cfg.Token.Issuer).WithClock(env.clock.Now)
	tokenIssuer := NewTokenIssuer(refreshRepo, env.store.Users, jwtAuth, env.cfg.Token, env.clock.Now)
	passwordReset := NewPasswordResetUsecase(
		env.store.Users, env.store.SingleUseTokens, tokenIssuer, env.notifier, inlineBackground{}, env.cfg, env.clock.Now,
	)

	require.NoError(t, passwordReset.RequestPasswordReset(ctx, "a@x.com"))
	token := env.notifier.lastReset(t).Token

	err := passwordReset.ResetPassword(ctx, "a@x.com", token, "N3wPassw0rd!")
	assert.ErrorIs(t, err, ErrUnavailable)

	// Nothing was applied: the token is unused and the old password still works.
	require.NoError(t, passwordReset.ValidatePasswordResetToken(ctx, "a@x.com", token))
	login, err := env.auth.Login(ctx, LoginParams{Email: "a@x.com", Password: "Passw0rd!"})
	require.NoError(t, err)

	refreshRepo.setFailing(false)
	require.NoError(t, passwordReset.ResetPassword(ctx, "a@x.com", token, "N3wPassw0rd!"))

	for _, refreshToken := range []string{registered.Tokens.RefreshToken, login.Tokens.RefreshToken} {
		_, err := env.auth.Refresh(ctx, refreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	_, err = env.auth.Login(ctx, LoginParams{Email: "a@x.com", Password: "N3wPassw0rd!"})
	assert.NoError(t, err)
}

func TestPasswordResetUsecase_ResetPassword_TooLong(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a@x.com", "Passw0rd!")

	require.NoError(t, env.passwordReset.RequestPasswordReset(ctx, "a@x.com"))
	token := env.notifier.lastReset(t).Token

	err := env.passwordReset.ResetPassword(ctx, "a@x.com", token, strings.Repeat("é", 40))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	assert.NoError(t, env.passwordReset.ValidatePasswordResetToken(ctx, "a@x.com", token))
}

func TestPasswordResetUsecase_RequestPasswordReset_WritesInBackground(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "a@x.com", "Passw0rd!")

	background := &queuedBackground{}
	passwordReset := NewPasswordResetUsecase(
		env.store.Users, env.store.SingleUseTokens, env.tokenIssuer, env.notifier, background, env.cfg, env.clock.Now,
	)

	require.NoError(t, passwordReset.RequestPasswordReset(context.Background(), "ghost@x.com"))
	assert.Zero(t, background.run())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, passwordReset.RequestPasswordReset(ctx, "a@x.com"))
	cancel()

	// The request returned after the lookup alone.
	_, err := env.store.SingleUseTokens.GetTokenByUser(context.Background(), registered.User.ID, model.PurposePasswordReset)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, env.notifier.resets)

	// The deferred work outlives the request context.
	assert.Equal(t, 1, background.run())

	sent := env.notifier.lastReset(t)
	entry, err := env.store.SingleUseTokens.GetTokenByUser(context.Background(), registered.User.ID, model.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, security.HashToken(sent.Token), entry.TokenHash)
}
