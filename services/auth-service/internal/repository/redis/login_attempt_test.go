package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

func newTestRepository(t *testing.T) (repository.LoginAttemptRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLoginAttemptRepository(client), mr
}

func TestLoginAttemptRepository_Increment(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetLoginAttempt(ctx, "jane@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementFailures(ctx, "jane@example.com")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	attempt, err := repo.GetLoginAttempt(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 20, attempt.FailedCount)
	assert.Nil(t, attempt.LockedUntil)
	assert.False(t, attempt.UpdatedAt.IsZero())

	assert.Equal(t, attemptTTL, mr.TTL(keyPrefix+"jane@example.com"))
}

func TestLoginAttemptRepository_Lockout(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	until := time.Now().Add(15 * time.Minute).Truncate(time.Microsecond)
	assert.ErrorIs(t, repo.SetLockout(ctx, "jane@example.com", until), repository.ErrNotFound)

	n, err := repo.IncrementFailures(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.SetLockout(ctx, "jane@example.com", until))

	attempt, err := repo.GetLoginAttempt(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, attempt.LockedUntil)
	assert.True(t, until.Equal(*attempt.LockedUntil))
	assert.True(t, attempt.IsLocked(time.Now()))

	require.NoError(t, repo.DeleteLoginAttempt(ctx, "jane@example.com"))
	require.NoError(t, repo.DeleteLoginAttempt(ctx, "jane@example.com"))

	_, err = repo.GetLoginAttempt(ctx, "jane@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
