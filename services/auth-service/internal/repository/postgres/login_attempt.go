package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

type LoginAttemptRepository struct {
	db *pgxpool.Pool
}

func NewLoginAttemptRepository(db *pgxpool.Pool) repository.LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

func (r *LoginAttemptRepository) GetLoginAttempt(ctx context.Context, identifier string) (*model.LoginAttempt, error) {
	query := `
		SELECT identifier, failed_count, locked_until, updated_at
		FROM login_attempts
		WHERE identifier = $1
	`

	var attempt model.LoginAttempt
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&attempt.Identifier,
		&attempt.FailedCount,
		&attempt.LockedUntil,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, pgErr(err)
	}

	return &attempt, nil
}

func (r *LoginAttemptRepository) IncrementFailures(ctx context.Context, identifier string) (int, error) {
	query := `
		INSERT INTO login_attempts (identifier, failed_count, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (identifier) DO UPDATE
		SET failed_count = login_attempts.failed_count + 1,
		    updated_at   = NOW()
		RETURNING failed_count
	`

	var count int
	if err := r.db.QueryRow(ctx, query, identifier).Scan(&count); err != nil {
		return 0, pgErr(err)
	}

	return count, nil
}

func (r *LoginAttemptRepository) SetLockout(ctx context.Context, identifier string, until time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE login_attempts SET locked_until = $1, updated_at = NOW() WHERE identifier = $2`,
		until, identifier)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *LoginAttemptRepository) DeleteLoginAttempt(ctx context.Context, identifier string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM login_attempts WHERE identifier = $1`, identifier)
	return err
}
