package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"esgadvisor/internal/model"
)

// CatalogRepository stores the deployment's stimulus catalog. The server
// loads it once at startup and falls back to the built-in default when the
// collection is empty; the catalog never changes for a running process.
type CatalogRepository interface {
	Replace(ctx context.Context, stimuli []model.Stimulus) error
	Load(ctx context.Context) ([]model.Stimulus, error)
}

type catalogRepository struct {
	collection *mongo.Collection
}

// NewCatalogRepository creates a Mongo-backed catalog repository.
func NewCatalogRepository(db *mongo.Database) CatalogRepository {
	return &catalogRepository{
		collection: db.Collection("stimuli"),
	}
}

func (r *catalogRepository) Replace(ctx context.Context, stimuli []model.Stimulus) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	docs := make([]interface{}, len(stimuli))
	for i, s := range stimuli {
		s.ID = i
		docs[i] = s
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *catalogRepository) Load(ctx context.Context) ([]model.Stimulus, error) {
	opts := options.Find().SetSort(bson.M{"id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stimuli []model.Stimulus
	if err = cursor.All(ctx, &stimuli); err != nil {
		return nil, err
	}

	return stimuli, nil
}
