package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
	authtypes "github.com/vasapolrittideah/car-rental-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/car-rental-api/shared/auth"
	"github.com/vasapolrittideah/car-rental-api/shared/security"
)

// TokenIssuer mints access/refresh token pairs and manages persisted refresh tokens.
type TokenIssuer interface {
	// Issue signs a new pair for userID and persists the refresh token.
	Issue(ctx context.Context, userID string, rememberMe bool) (*authtypes.Tokens, error)

	// Rotate exchanges a valid refresh token for a new pair. The presented token
	// can never be used again, and a concurrent second rotation fails with ErrInvalidToken.
	Rotate(ctx context.Context, refreshToken string) (*authtypes.Tokens, error)

	// Revoke deletes the persisted refresh token. Unknown tokens are ignored.
	Revoke(ctx context.Context, refreshToken string) error

	// RevokeAll deletes every refresh token of userID.
	RevokeAll(ctx context.Context, userID string) error

	// VerifyAccessToken validates an access token and returns its subject.
	VerifyAccessToken(accessToken string) (string, error)
}

type tokenIssuer struct {
	refreshTokenRepo repository.RefreshTokenRepository
	userRepo         repository.UserRepository
	jwtAuth          auth.JWTAuthenticator
	cfg              config.TokenConfig
	now              func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. now defaults to time.Now and must be the
// clock jwtAuth was built with.
func NewTokenIssuer(
	refreshTokenRepo repository.RefreshTokenRepository,
	userRepo repository.UserRepository,
	jwtAuth auth.JWTAuthenticator,
	cfg config.TokenConfig,
	now func() time.Time,
) TokenIssuer {
	if now == nil {
		now = time.Now
	}

	return &tokenIssuer{
		refreshTokenRepo: refreshTokenRepo,
		userRepo:         userRepo,
		jwtAuth:          jwtAuth,
		cfg:              cfg,
		now:              now,
	}
}

func (u *tokenIssuer) Issue(ctx context.Context, userID string, rememberMe bool) (*authtypes.Tokens, error) {
	tokens, record, err := u.sign(userID, rememberMe)
	if err != nil {
		return nil, err
	}

	if err := u.refreshTokenRepo.CreateRefreshToken(ctx, record); err != nil {
		return nil, unavailable(err)
	}

	return tokens, nil
}

func (u *tokenIssuer) Rotate(ctx context.Context, refreshToken string) (*authtypes.Tokens, error) {
	claims, err := u.jwtAuth.ValidateToken(refreshToken, u.cfg.RefreshTokenSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	oldHash := security.HashToken(refreshToken)
	record, err := u.refreshTokenRepo.GetRefreshToken(ctx, oldHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, unavailable(err)
	}

	if record.UserID != claims.Subject || !u.now().Before(record.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	user, err := u.userRepo.GetUser(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, unavailable(err)
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	tokens, next, err := u.sign(user.ID, record.RememberMe)
	if err != nil {
		return nil, err
	}

	if err := u.refreshTokenRepo.RotateRefreshToken(ctx, oldHash, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, unavailable(err)
	}

	return tokens, nil
}

func (u *tokenIssuer) Revoke(ctx context.Context, refreshToken string) error {
	if _, err := u.refreshTokenRepo.DeleteRefreshToken(ctx, security.HashToken(refreshToken)); err != nil {
		return unavailable(err)
	}
	return nil
}

func (u *tokenIssuer) RevokeAll(ctx context.Context, userID string) error {
	if _, err := u.refreshTokenRepo.DeleteUserRefreshTokens(ctx, userID); err != nil {
		return unavailable(err)
	}
	return nil
}

func (u *tokenIssuer) VerifyAccessToken(accessToken string) (string, error) {
	claims, err := u.jwtAuth.ValidateToken(accessToken, u.cfg.AccessTokenSecret)
	if err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// sign produces a token pair and the refresh token record to persist for it.
func (u *tokenIssuer) sign(userID string, rememberMe bool) (*authtypes.Tokens, *model.RefreshToken, error) {
	accessToken, _, err := u.jwtAuth.GenerateToken(
		jwt.RegisteredClaims{Subject: userID},
		u.cfg.AccessTokenSecret,
		u.cfg.AccessTokenExpiresIn,
	)
	if err != nil {
		return nil, nil, err
	}

	refreshTTL := u.cfg.RefreshTokenExpiresIn
	if rememberMe {
		refreshTTL = u.cfg.RememberMeRefreshTokenExpiresIn
	}

	refreshToken, expiresAt, err := u.jwtAuth.GenerateToken(
		jwt.RegisteredClaims{Subject: userID, ID: uuid.NewString()},
		u.cfg.RefreshTokenSecret,
		refreshTTL,
	)
	if err != nil {
		return nil, nil, err
	}

	record := &model.RefreshToken{
		ID:         uuid.NewString(),
		TokenHash:  security.HashToken(refreshToken),
		UserID:     userID,
		RememberMe: rememberMe,
		ExpiresAt:  expiresAt,
		CreatedAt:  u.now(),
	}

	return &authtypes.Tokens{
		AccessToken:          accessToken,
		RefreshToken:         refreshToken,
		AccessTokenExpiresIn: u.cfg.AccessTokenExpiresIn.Milliseconds(),
	}, record, nil
}
