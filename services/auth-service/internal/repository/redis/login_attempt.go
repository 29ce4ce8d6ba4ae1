package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

const (
	keyPrefix = "auth:login_attempts:"

	fieldFailedCount = "failed_count"
	fieldLockedUntil = "locked_until"
	fieldUpdatedAt   = "updated_at"

	// Idle counters expire a day after their last change.
	attemptTTL = 24 * time.Hour
)

// setLockoutScript writes locked_until only when the hash exists.
var setLockoutScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "locked_until", ARGV[1], "updated_at", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// LoginAttemptRepository keeps failure counters in Redis hashes so several
// service instances share one lockout view without touching the primary store.
type LoginAttemptRepository struct {
	redis *redis.Client
}

func NewLoginAttemptRepository(r *redis.Client) repository.LoginAttemptRepository {
	return &LoginAttemptRepository{redis: r}
}

// NewClient connects to addr and pings it.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func (r *LoginAttemptRepository) GetLoginAttempt(ctx context.Context, identifier string) (*model.LoginAttempt, error) {
	values, err := r.redis.HGetAll(ctx, keyPrefix+identifier).Result()
	if err != nil {
		return nil, fmt.Errorf("login attempt hgetall failed: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	attempt := &model.LoginAttempt{Identifier: identifier}

	if raw := values[fieldFailedCount]; raw != "" {
		if attempt.FailedCount, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("login attempt decode failed_count: %w", err)
		}
	}
	if raw := values[fieldLockedUntil]; raw != "" {
		until, err := parseUnixNano(raw)
		if err != nil {
			return nil, fmt.Errorf("login attempt decode locked_until: %w", err)
		}
		attempt.LockedUntil = &until
	}
	if raw := values[fieldUpdatedAt]; raw != "" {
		if attempt.UpdatedAt, err = parseUnixNano(raw); err != nil {
			return nil, fmt.Errorf("login attempt decode updated_at: %w", err)
		}
	}

	return attempt, nil
}

func (r *LoginAttemptRepository) IncrementFailures(ctx context.Context, identifier string) (int, error) {
	key := keyPrefix + identifier

	var incr *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, key, fieldFailedCount, 1)
		pipe.HSet(ctx, key, fieldUpdatedAt, formatUnixNano(time.Now()))
		pipe.Expire(ctx, key, attemptTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("login attempt hincrby failed: %w", err)
	}

	return int(incr.Val()), nil
}

func (r *LoginAttemptRepository) SetLockout(ctx context.Context, identifier string, until time.Time) error {
	updated, err := setLockoutScript.Run(ctx, r.redis, []string{keyPrefix + identifier},
		formatUnixNano(until),
		formatUnixNano(time.Now()),
		attemptTTL.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("login attempt lockout failed: %w", err)
	}
	if updated == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *LoginAttemptRepository) DeleteLoginAttempt(ctx context.Context, identifier string) error {
	if err := r.redis.Del(ctx, keyPrefix+identifier).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("login attempt del failed: %w", err)
	}
	return nil
}

func formatUnixNano(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseUnixNano(raw string) (time.Time, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}
