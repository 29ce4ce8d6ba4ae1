package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

// RefreshTokenRepository keys records by token hash.
type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]model.RefreshToken
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{tokens: make(map[string]model.RefreshToken)}
}

func (r *RefreshTokenRepository) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insert(token)
}

func (r *RefreshTokenRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return &token, nil
}

func (r *RefreshTokenRepository) DeleteRefreshToken(ctx context.Context, tokenHash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tokens[tokenHash]
	delete(r.tokens, tokenHash)

	return ok, nil
}

func (r *RefreshTokenRepository) DeleteUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, hash)
			n++
		}
	}

	return n, nil
}

func (r *RefreshTokenRepository) RotateRefreshToken(
	ctx context.Context,
	oldHash string,
	next *model.RefreshToken,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.tokens[oldHash]
	if !ok {
		return repository.ErrNotFound
	}

	delete(r.tokens, oldHash)
	if err := r.insert(next); err != nil {
		r.tokens[oldHash] = old
		return err
	}

	return nil
}

// Count returns the number of stored records owned by userID.
func (r *RefreshTokenRepository) Count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for _, token := range r.tokens {
		if token.UserID == userID {
			n++
		}
	}
	return n
}

func (r *RefreshTokenRepository) insert(token *model.RefreshToken) error {
	if _, exists := r.tokens[token.TokenHash]; exists {
		return fmt.Errorf("%w: token_hash", repository.ErrDuplicateKey)
	}
	r.tokens[token.TokenHash] = *token
	return nil
}
