package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/car-rental-api/shared/security"
)

const singleUseTokenBytes = 32

// issueSingleUseToken stores the hash of a fresh random token for userID and purpose,
// replacing any previous one, and returns the plaintext.
func issueSingleUseToken(
	ctx context.Context,
	repo repository.SingleUseTokenRepository,
	userID string,
	purpose model.TokenPurpose,
	ttl time.Duration,
	now time.Time,
) (string, error) {
	token, err := security.GenerateToken(singleUseTokenBytes)
	if err != nil {
		return "", err
	}

	if err := repo.UpsertToken(ctx, &model.SingleUseToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: security.HashToken(token),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}); err != nil {
		return "", unavailable(err)
	}

	return token, nil
}
