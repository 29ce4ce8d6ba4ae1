package memory

import (
	"context"
	"sync"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

type singleUseKey struct {
	userID  string
	purpose model.TokenPurpose
}

type SingleUseTokenRepository struct {
	mu     sync.Mutex
	tokens map[singleUseKey]model.SingleUseToken
}

func NewSingleUseTokenRepository() *SingleUseTokenRepository {
	return &SingleUseTokenRepository{tokens: make(map[singleUseKey]model.SingleUseToken)}
}

func (r *SingleUseTokenRepository) UpsertToken(ctx context.Context, token *model.SingleUseToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := singleUseKey{userID: token.UserID, purpose: token.Purpose}
	if existing, ok := r.tokens[key]; ok {
		token.ID = existing.ID
	}
	r.tokens[key] = *token

	return nil
}

func (r *SingleUseTokenRepository) GetTokenByUser(
	ctx context.Context,
	userID string,
	purpose model.TokenPurpose,
) (*model.SingleUseToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[singleUseKey{userID: userID, purpose: purpose}]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return &token, nil
}

func (r *SingleUseTokenRepository) GetTokenByHash(
	ctx context.Context,
	tokenHash string,
	purpose model.TokenPurpose,
) (*model.SingleUseToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, token := range r.tokens {
		if key.purpose == purpose && token.TokenHash == tokenHash {
			return &token, nil
		}
	}

	return nil, repository.ErrNotFound
}

func (r *SingleUseTokenRepository) ConsumeToken(ctx context.Context, token *model.SingleUseToken) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := singleUseKey{userID: token.UserID, purpose: token.Purpose}
	stored, ok := r.tokens[key]
	if !ok || stored.ID != token.ID || stored.TokenHash != token.TokenHash {
		return false, nil
	}
	delete(r.tokens, key)

	return true, nil
}
