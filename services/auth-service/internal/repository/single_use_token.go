package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
)

// SingleUseTokenRepository defines the interface for password-reset and email-verification tokens.
type SingleUseTokenRepository interface {
	// UpsertToken stores token, replacing any existing token with the same user and purpose.
	UpsertToken(ctx context.Context, token *model.SingleUseToken) error

	// GetTokenByUser retrieves the token of userID for purpose.
	GetTokenByUser(ctx context.Context, userID string, purpose model.TokenPurpose) (*model.SingleUseToken, error)

	// GetTokenByHash retrieves the token with tokenHash for purpose.
	GetTokenByHash(ctx context.Context, tokenHash string, purpose model.TokenPurpose) (*model.SingleUseToken, error)

	// ConsumeToken deletes token if it is still stored unchanged and reports whether this call removed it.
	ConsumeToken(ctx context.Context, token *model.SingleUseToken) (bool, error)
}

const singleUseTokenCollection = "single_use_tokens"

// Expired tokens are kept for a while so callers can still tell "expired" from "unknown".
const singleUseTokenRetention = 24 * time.Hour

type singleUseTokenMongoRepository struct {
	db *mongo.Database
}

// NewSingleUseTokenMongoRepository creates a new MongoDB repository for single-use tokens.
func NewSingleUseTokenMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) SingleUseTokenRepository {
	collection := db.Collection(singleUseTokenCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "purpose", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "token_hash", Value: 1}, {Key: "purpose", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(singleUseTokenRetention.Seconds())),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create single-use token indexes")
	}

	return &singleUseTokenMongoRepository{db: db}
}

func (r *singleUseTokenMongoRepository) UpsertToken(ctx context.Context, token *model.SingleUseToken) error {
	filter := bson.M{"user_id": token.UserID, "purpose": token.Purpose}
	update := bson.M{
		"$set": bson.M{
			"token_hash": token.TokenHash,
			"expires_at": token.ExpiresAt,
			"created_at": token.CreatedAt,
		},
		"$setOnInsert": bson.M{"_id": token.ID},
	}

	var stored model.SingleUseToken
	err := r.db.Collection(singleUseTokenCollection).FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return mongoErr(err)
	}

	token.ID = stored.ID
	return nil
}

func (r *singleUseTokenMongoRepository) GetTokenByUser(
	ctx context.Context,
	userID string,
	purpose model.TokenPurpose,
) (*model.SingleUseToken, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "purpose": purpose})
}

func (r *singleUseTokenMongoRepository) GetTokenByHash(
	ctx context.Context,
	tokenHash string,
	purpose model.TokenPurpose,
) (*model.SingleUseToken, error) {
	return r.findOne(ctx, bson.M{"token_hash": tokenHash, "purpose": purpose})
}

func (r *singleUseTokenMongoRepository) ConsumeToken(ctx context.Context, token *model.SingleUseToken) (bool, error) {
	result, err := r.db.Collection(singleUseTokenCollection).DeleteOne(ctx, bson.M{
		"_id":        token.ID,
		"token_hash": token.TokenHash,
	})
	if err != nil {
		return false, err
	}

	return result.DeletedCount == 1, nil
}

func (r *singleUseTokenMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.SingleUseToken, error) {
	var token model.SingleUseToken
	if err := r.db.Collection(singleUseTokenCollection).FindOne(ctx, filter).Decode(&token); err != nil {
		return nil, mongoErr(err)
	}

	return &token, nil
}
