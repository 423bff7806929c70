package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"esgadvisor/internal/model"
)

// ProfileRepository is the write-only sink for completed interviews.
// Append is invoked exactly once per session, after finalize succeeds; a
// failed write is reported to the caller but never rolls back scoring.
type ProfileRepository interface {
	Append(ctx context.Context, record *model.ProfileRecord) error
	GetBySessionID(ctx context.Context, sessionID string) (*model.ProfileRecord, error)
}

type profileRepository struct {
	collection *mongo.Collection
}

// NewProfileRepository creates a Mongo-backed profile repository.
func NewProfileRepository(db *mongo.Database) ProfileRepository {
	return &profileRepository{
		collection: db.Collection("profiles"),
	}
}

func (r *profileRepository) Append(ctx context.Context, record *model.ProfileRecord) error {
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid.Hex()
	}

	return nil
}

func (r *profileRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.ProfileRecord, error) {
	var record model.ProfileRecord
	err := r.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
