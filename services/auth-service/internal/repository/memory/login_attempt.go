package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

type LoginAttemptRepository struct {
	mu       sync.Mutex
	attempts map[string]model.LoginAttempt
}

func NewLoginAttemptRepository() *LoginAttemptRepository {
	return &LoginAttemptRepository{attempts: make(map[string]model.LoginAttempt)}
}

func (r *LoginAttemptRepository) GetLoginAttempt(ctx context.Context, identifier string) (*model.LoginAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, ok := r.attempts[identifier]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if attempt.LockedUntil != nil {
		until := *attempt.LockedUntil
		attempt.LockedUntil = &until
	}

	return &attempt, nil
}

func (r *LoginAttemptRepository) IncrementFailures(ctx context.Context, identifier string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	attempt := r.attempts[identifier]
	attempt.Identifier = identifier
	attempt.FailedCount++
	attempt.UpdatedAt = time.Now().UTC()
	r.attempts[identifier] = attempt

	return attempt.FailedCount, nil
}

func (r *LoginAttemptRepository) SetLockout(ctx context.Context, identifier string, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, ok := r.attempts[identifier]
	if !ok {
		return repository.ErrNotFound
	}
	attempt.LockedUntil = &until
	attempt.UpdatedAt = time.Now().UTC()
	r.attempts[identifier] = attempt

	return nil
}

func (r *LoginAttemptRepository) DeleteLoginAttempt(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.attempts, identifier)
	return nil
}
