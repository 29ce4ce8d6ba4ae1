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

// LoginAttemptRepository defines the interface for failed-login bookkeeping.
type LoginAttemptRepository interface {
	// GetLoginAttempt retrieves the record for identifier.
	GetLoginAttempt(ctx context.Context, identifier string) (*model.LoginAttempt, error)

	// IncrementFailures atomically adds one failure, creating the record at 1, and returns the new count.
	IncrementFailures(ctx context.Context, identifier string) (int, error)

	// SetLockout stores the end of the lockout window for identifier.
	SetLockout(ctx context.Context, identifier string, until time.Time) error

	// DeleteLoginAttempt removes the record for identifier. Missing records are not an error.
	DeleteLoginAttempt(ctx context.Context, identifier string) error
}

const loginAttemptCollection = "login_attempts"

type loginAttemptMongoRepository struct {
	db *mongo.Database
}

// NewLoginAttemptMongoRepository creates a new MongoDB repository for login attempts.
func NewLoginAttemptMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) LoginAttemptRepository {
	collection := db.Collection(loginAttemptCollection)

	// Idle counters are dropped a day after their last change.
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32((24 * time.Hour).Seconds())),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create login attempt indexes")
	}

	return &loginAttemptMongoRepository{db: db}
}

func (r *loginAttemptMongoRepository) GetLoginAttempt(
	ctx context.Context,
	identifier string,
) (*model.LoginAttempt, error) {
	var attempt model.LoginAttempt
	err := r.db.Collection(loginAttemptCollection).
		FindOne(ctx, bson.M{"_id": identifier}).
		Decode(&attempt)
	if err != nil {
		return nil, mongoErr(err)
	}

	return &attempt, nil
}

func (r *loginAttemptMongoRepository) IncrementFailures(ctx context.Context, identifier string) (int, error) {
	update := bson.M{
		"$inc": bson.M{"failed_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	var attempt model.LoginAttempt
	err := r.db.Collection(loginAttemptCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": identifier},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&attempt)
	if err != nil {
		return 0, mongoErr(err)
	}

	return attempt.FailedCount, nil
}

func (r *loginAttemptMongoRepository) SetLockout(ctx context.Context, identifier string, until time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"locked_until": until.UTC(),
			"updated_at":   time.Now().UTC(),
		},
	}

	result, err := r.db.Collection(loginAttemptCollection).UpdateOne(ctx, bson.M{"_id": identifier}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *loginAttemptMongoRepository) DeleteLoginAttempt(ctx context.Context, identifier string) error {
	_, err := r.db.Collection(loginAttemptCollection).DeleteOne(ctx, bson.M{"_id": identifier})
	return err
}
