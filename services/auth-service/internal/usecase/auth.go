package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
	authtypes "github.com/vasapolrittideah/car-rental-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/car-rental-api/shared/security"
)

// AuthUsecase defines the interface for authentication-related use cases.
type AuthUsecase interface {
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)
	Login(ctx context.Context, params LoginParams) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*authtypes.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) error
	Profile(ctx context.Context, userID string) (*model.User, error)
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email      string
	Password   string
	RememberMe bool
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       *string
	DateOfBirth *time.Time
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User   *model.User
	Tokens *authtypes.Tokens
}

type authUsecase struct {
	userRepo           repository.UserRepository
	singleUseTokenRepo repository.SingleUseTokenRepository
	tokenIssuer        TokenIssuer
	rateLimiter        RateLimiter
	notifier           Notifier
	authServiceCfg     *config.AuthServiceConfig
	now                func() time.Time

	// dummyHash is compared against when the email is unknown so both
	// failure branches cost one password verification.
	dummyHash func() string
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	singleUseTokenRepo repository.SingleUseTokenRepository,
	tokenIssuer TokenIssuer,
	rateLimiter RateLimiter,
	notifier Notifier,
	authServiceCfg *config.AuthServiceConfig,
	now func() time.Time,
) AuthUsecase {
	if now == nil {
		now = time.Now
	}

	cost := authServiceCfg.BcryptCost
	return &authUsecase{
		userRepo:           userRepo,
		singleUseTokenRepo: singleUseTokenRepo,
		tokenIssuer:        tokenIssuer,
		rateLimiter:        rateLimiter,
		notifier:           notifier,
		authServiceCfg:     authServiceCfg,
		now:                now,
		dummyHash: sync.OnceValue(func() string {
			hash, _ := security.HashPassword("dummy-password-for-unknown-users", cost)
			return hash
		}),
	}
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	email := normalizeEmail(params.Email)
	phone := normalizePhone(params.Phone)

	if _, err := u.userRepo.GetUserByEmailOrPhone(ctx, email, phone); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, unavailable(err)
	}

	passwordHash, err := hashPassword(params.Password, u.authServiceCfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Role:         model.RoleCustomer,
		IsActive:     true,
		IsVerified:   false,
		DateOfBirth:  params.DateOfBirth,
	})
	if err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, unavailable(err)
	}

	tokens, err := u.tokenIssuer.Issue(ctx, user.ID, false)
	if err != nil {
		return nil, err
	}

	u.sendVerification(ctx, user)

	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	email := normalizeEmail(params.Email)

	if err := u.rateLimiter.Check(ctx, email); err != nil {
		return nil, err
	}

	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, unavailable(err)
		}

		_, _ = security.VerifyPassword(params.Password, u.dummyHash())
		return nil, u.loginFailed(ctx, email)
	}

	ok, err := security.VerifyPassword(params.Password, user.PasswordHash)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("stored password hash is unreadable")
	}
	if !ok {
		return nil, u.loginFailed(ctx, email)
	}

	// Only reported once the caller has proven the password.
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	if err := u.rateLimiter.Reset(ctx, email); err != nil {
		return nil, err
	}

	tokens, err := u.tokenIssuer.Issue(ctx, user.ID, params.RememberMe)
	if err != nil {
		return nil, err
	}

	if security.NeedsRehash(user.PasswordHash, u.authServiceCfg.BcryptCost) {
		u.rehashPassword(ctx, user, params.Password)
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (u *authUsecase) Refresh(ctx context.Context, refreshToken string) (*authtypes.Tokens, error) {
	return u.tokenIssuer.Rotate(ctx, refreshToken)
}

func (u *authUsecase) Logout(ctx context.Context, refreshToken string) error {
	return u.tokenIssuer.Revoke(ctx, refreshToken)
}

func (u *authUsecase) LogoutAll(ctx context.Context, userID string) error {
	return u.tokenIssuer.RevokeAll(ctx, userID)
}

func (u *authUsecase) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable(err)
	}

	return user, nil
}

func (u *authUsecase) loginFailed(ctx context.Context, email string) error {
	if err := u.rateLimiter.RecordFailure(ctx, email); err != nil {
		return err
	}
	return ErrInvalidCredentials
}

// sendVerification issues an email verification token after registration.
// Registration has already succeeded, so failures are only logged; the user
// can ask for a new token later.
func (u *authUsecase) sendVerification(ctx context.Context, user *model.User) {
	ttl := u.authServiceCfg.Token.EmailVerificationTokenExpiresIn

	token, err := issueSingleUseToken(ctx, u.singleUseTokenRepo, user.ID, model.PurposeEmailVerification, ttl, u.now())
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("failed to issue email verification token")
		return
	}

	u.notifier.SendEmailVerification(ctx, user, token, ttl)
}

func (u *authUsecase) rehashPassword(ctx context.Context, user *model.User, password string) {
	passwordHash, err := security.HashPassword(password, u.authServiceCfg.BcryptCost)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("failed to rehash password")
		return
	}

	if _, err := u.userRepo.UpdateUser(ctx, user.ID, repository.UpdateUserParams{
		PasswordHash: &passwordHash,
	}); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("failed to store rehashed password")
		return
	}

	user.PasswordHash = passwordHash
}

// hashPassword hashes a caller supplied password, reporting an over-long one as ErrPasswordTooLong.
func hashPassword(password string, cost int) (string, error) {
	hash, err := security.HashPassword(password, cost)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	return hash, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	p := strings.TrimSpace(*phone)
	if p == "" {
		return nil
	}
	return &p
}
