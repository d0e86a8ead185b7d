// internal/app/store/reconcileruns/store.go
package reconcileruns

import (
	"context"

	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store keeps one document per reconciler run, keyed by run id.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("reconcile_runs")}
}

// Save writes a finished run.
func (s *Store) Save(ctx context.Context, run models.ReconcileRun) error {
	_, err := s.c.InsertOne(ctx, run)
	return err
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]models.ReconcileRun, error) {
	if limit <= 0 {
		limit = 10
	}
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	runs := []models.ReconcileRun{}
	if err := cur.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
