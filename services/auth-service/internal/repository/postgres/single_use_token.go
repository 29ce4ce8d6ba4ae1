package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

type SingleUseTokenRepository struct {
	db *pgxpool.Pool
}

func NewSingleUseTokenRepository(db *pgxpool.Pool) repository.SingleUseTokenRepository {
	return &SingleUseTokenRepository{db: db}
}

const singleUseTokenColumns = `id, user_id, purpose, token_hash, expires_at, created_at`

func (r *SingleUseTokenRepository) UpsertToken(ctx context.Context, token *model.SingleUseToken) error {
	query := `
		INSERT INTO single_use_tokens (` + singleUseTokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, purpose) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		token.ID,
		token.UserID,
		string(token.Purpose),
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID)

	return pgErr(err)
}

func (r *SingleUseTokenRepository) GetTokenByUser(
	ctx context.Context,
	userID string,
	purpose model.TokenPurpose,
) (*model.SingleUseToken, error) {
	query := `SELECT ` + singleUseTokenColumns + ` FROM single_use_tokens WHERE user_id = $1 AND purpose = $2`
	return r.queryOne(ctx, query, userID, string(purpose))
}

func (r *SingleUseTokenRepository) GetTokenByHash(
	ctx context.Context,
	tokenHash string,
	purpose model.TokenPurpose,
) (*model.SingleUseToken, error) {
	query := `SELECT ` + singleUseTokenColumns + ` FROM single_use_tokens WHERE token_hash = $1 AND purpose = $2`
	return r.queryOne(ctx, query, tokenHash, string(purpose))
}

func (r *SingleUseTokenRepository) ConsumeToken(ctx context.Context, token *model.SingleUseToken) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM single_use_tokens WHERE id = $1 AND token_hash = $2`,
		token.ID, token.TokenHash)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (r *SingleUseTokenRepository) queryOne(
	ctx context.Context,
	query string,
	args ...any,
) (*model.SingleUseToken, error) {
	var token model.SingleUseToken
	var purpose string

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&token.ID,
		&token.UserID,
		&purpose,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, pgErr(err)
	}
	token.Purpose = model.TokenPurpose(purpose)

	return &token, nil
}
