package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository/memory"
	"github.com/vasapolrittideah/car-rental-api/shared/auth"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentToken struct {
	UserID    string
	Email     string
	Token     string
	ExpiresIn time.Duration
}

type fakeNotifier struct {
	mu            sync.Mutex
	resets        []sentToken
	verifications []sentToken
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, user *model.User, token string, expiresIn time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, sentToken{UserID: user.ID, Email: user.Email, Token: token, ExpiresIn: expiresIn})
}

func (n *fakeNotifier) SendEmailVerification(
	_ context.Context,
	user *model.User,
	token string,
	expiresIn time.Duration,
) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, sentToken{UserID: user.ID, Email: user.Email, Token: token, ExpiresIn: expiresIn})
}

func (n *fakeNotifier) lastReset(t *testing.T) sentToken {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.resets)
	return n.resets[len(n.resets)-1]
}

func (n *fakeNotifier) lastVerification(t *testing.T) sentToken {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.verifications)
	return n.verifications[len(n.verifications)-1]
}

// inlineBackground runs background work before Go returns.
type inlineBackground struct{}

func (inlineBackground) Go(fn func()) { fn() }

// queuedBackground holds background work until run is called.
type queuedBackground struct {
	mu    sync.Mutex
	tasks []func()
}

func (b *queuedBackground) Go(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, fn)
}

func (b *queuedBackground) run() int {
	b.mu.Lock()
	tasks := b.tasks
	b.tasks = nil
	b.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}

type testEnv struct {
	clock    *testClock
	store    *memory.Store
	notifier *fakeNotifier
	cfg      *config.AuthServiceConfig

	tokenIssuer       TokenIssuer
	rateLimiter       RateLimiter
	auth              AuthUsecase
	passwordReset     PasswordResetUsecase
	emailVerification EmailVerificationUsecase
}

func newTestConfig() *config.AuthServiceConfig {
	return &config.AuthServiceConfig{
		BcryptCost: bcrypt.MinCost,
		Token: config.TokenConfig{
			AccessTokenSecret:               "access-secret-for-tests",
			RefreshTokenSecret:              "refresh-secret-for-tests",
			AccessTokenExpiresIn:            time.Hour,
			RefreshTokenExpiresIn:           7 * 24 * time.Hour,
			RememberMeRefreshTokenExpiresIn: 30 * 24 * time.Hour,
			PasswordResetTokenExpiresIn:     10 * time.Minute,
			EmailVerificationTokenExpiresIn: 24 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			MaxLoginAttempts: 5,
			LockoutDuration:  15 * time.Minute,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	notifier := &fakeNotifier{}
	cfg := newTestConfig()

	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Audience, cfg.Token.Issuer).WithClock(clock.Now)
	tokenIssuer := NewTokenIssuer(store.RefreshTokens, store.Users, jwtAuth, cfg.Token, clock.Now)
	rateLimiter := NewRateLimiter(store.LoginAttempts, cfg.RateLimit, clock.Now)

	return &testEnv{
		clock:       clock,
		store:       store,
		notifier:    notifier,
		cfg:         cfg,
		tokenIssuer: tokenIssuer,
		rateLimiter: rateLimiter,
		auth: NewAuthUsecase(
			store.Users, store.SingleUseTokens, tokenIssuer, rateLimiter, notifier, cfg, clock.Now,
		),
		passwordReset: NewPasswordResetUsecase(
			store.Users, store.SingleUseTokens, tokenIssuer, notifier, inlineBackground{}, cfg, clock.Now,
		),
		emailVerification: NewEmailVerificationUsecase(
			store.Users, store.SingleUseTokens, notifier, cfg, clock.Now,
		),
	}
}

func (e *testEnv) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()

	result, err := e.auth.Register(context.Background(), RegisterParams{
		Email:     email,
		Password:  password,
		FirstName: "A",
		LastName:  "B",
	})
	require.NoError(t, err)
	return result
}

func (e *testEnv) setActive(t *testing.T, userID string, active bool) {
	t.Helper()

	_, err := e.store.Users.UpdateUser(context.Background(), userID, repositoryParamsActive(active))
	require.NoError(t, err)
}

func repositoryParamsActive(active bool) repository.UpdateUserParams {
	return repository.UpdateUserParams{IsActive: &active}
}
