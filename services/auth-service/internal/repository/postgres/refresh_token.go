package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

type RefreshTokenRepository struct {
	db *pgxpool.Pool
}

func NewRefreshTokenRepository(db *pgxpool.Pool) repository.RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

const insertRefreshToken = `
	INSERT INTO refresh_tokens (id, token_hash, user_id, remember_me, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

func (r *RefreshTokenRepository) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	_, err := r.db.Exec(ctx, insertRefreshToken,
		token.ID, token.TokenHash, token.UserID, token.RememberMe, token.ExpiresAt, token.CreatedAt)
	return pgErr(err)
}

func (r *RefreshTokenRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	query := `
		SELECT id, token_hash, user_id, remember_me, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var token model.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.TokenHash,
		&token.UserID,
		&token.RememberMe,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, pgErr(err)
	}

	return &token, nil
}

func (r *RefreshTokenRepository) DeleteRefreshToken(ctx context.Context, tokenHash string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (r *RefreshTokenRepository) DeleteUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// RotateRefreshToken deletes the old row and inserts next in one transaction.
// A concurrent rotation of the same row blocks on the delete and then sees zero rows.
func (r *RefreshTokenRepository) RotateRefreshToken(
	ctx context.Context,
	oldHash string,
	next *model.RefreshToken,
) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, oldHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if _, err := tx.Exec(ctx, insertRefreshToken,
		next.ID, next.TokenHash, next.UserID, next.RememberMe, next.ExpiresAt, next.CreatedAt); err != nil {
		return pgErr(err)
	}

	return tx.Commit(ctx)
}
