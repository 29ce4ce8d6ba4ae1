package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
)

// RefreshTokenRepository defines the interface for persisted refresh-token sessions.
type RefreshTokenRepository interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error

	// GetRefreshToken retrieves a record by the hash of its token.
	GetRefreshToken(ctx context.Context, tokenHash string) (*model.RefreshToken, error)

	// DeleteRefreshToken removes the record with tokenHash and reports whether one existed.
	DeleteRefreshToken(ctx context.Context, tokenHash string) (bool, error)

	// DeleteUserRefreshTokens removes every record owned by userID.
	DeleteUserRefreshTokens(ctx context.Context, userID string) (int64, error)

	// RotateRefreshToken replaces the record with oldHash by next as one unit.
	// Returns ErrNotFound, and stores nothing, when oldHash no longer exists.
	RotateRefreshToken(ctx context.Context, oldHash string, next *model.RefreshToken) error
}

const refreshTokenCollection = "refresh_tokens"

type refreshTokenMongoRepository struct {
	db     *mongo.Database
	logger *zerolog.Logger
}

// NewRefreshTokenMongoRepository creates a new MongoDB repository for refresh tokens.
func NewRefreshTokenMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) RefreshTokenRepository {
	collection := db.Collection(refreshTokenCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create refresh token indexes")
	}

	return &refreshTokenMongoRepository{db: db, logger: logger}
}

func (r *refreshTokenMongoRepository) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	_, err := r.db.Collection(refreshTokenCollection).InsertOne(ctx, token)
	return mongoErr(err)
}

func (r *refreshTokenMongoRepository) GetRefreshToken(
	ctx context.Context,
	tokenHash string,
) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.db.Collection(refreshTokenCollection).
		FindOne(ctx, bson.M{"token_hash": tokenHash}).
		Decode(&token)
	if err != nil {
		return nil, mongoErr(err)
	}

	return &token, nil
}

func (r *refreshTokenMongoRepository) DeleteRefreshToken(ctx context.Context, tokenHash string) (bool, error) {
	result, err := r.db.Collection(refreshTokenCollection).DeleteOne(ctx, bson.M{"token_hash": tokenHash})
	if err != nil {
		return false, err
	}

	return result.DeletedCount > 0, nil
}

func (r *refreshTokenMongoRepository) DeleteUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.Collection(refreshTokenCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

// RotateRefreshToken runs inside a transaction when the deployment supports one.
// On a standalone server the old record is claimed with FindOneAndDelete and put
// back if inserting next fails; a crash between the two steps can still lose it.
func (r *refreshTokenMongoRepository) RotateRefreshToken(
	ctx context.Context,
	oldHash string,
	next *model.RefreshToken,
) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, r.rotate(txCtx, oldHash, next)
	})
	if err == nil || !isTransactionUnsupported(err) {
		return err
	}

	r.logger.Debug().Msg("mongo transactions unsupported, rotating refresh token without one")
	return r.rotate(ctx, oldHash, next)
}

func (r *refreshTokenMongoRepository) rotate(ctx context.Context, oldHash string, next *model.RefreshToken) error {
	collection := r.db.Collection(refreshTokenCollection)

	var old model.RefreshToken
	if err := collection.FindOneAndDelete(ctx, bson.M{"token_hash": oldHash}).Decode(&old); err != nil {
		return mongoErr(err)
	}

	if _, err := collection.InsertOne(ctx, next); err != nil {
		if mongo.SessionFromContext(ctx) == nil {
			if _, restoreErr := collection.InsertOne(context.WithoutCancel(ctx), &old); restoreErr != nil {
				return errors.Join(mongoErr(err), fmt.Errorf("restore refresh token: %w", restoreErr))
			}
		}
		return mongoErr(err)
	}

	return nil
}
