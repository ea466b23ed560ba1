package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/convert-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ConversionRepo stores one history row per finished conversion.
type ConversionRepo struct {
	col *mongo.Collection
}

func NewConversionRepo(col *mongo.Collection) *ConversionRepo {
	return &ConversionRepo{col: col}
}

// EnsureIndexes creates a descending created_at index so operators can page
// through the history newest first.
func (r *ConversionRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	return err
}

func (r *ConversionRepo) Insert(ctx context.Context, rec *models.ConversionRecord) error {
	stamp(rec, time.Now())
	_, err := r.col.InsertOne(ctx, rec)
	return err
}

// stamp sets CreatedAt when the caller left it empty. Mongo keeps
// millisecond precision, so the time is truncated to match what is read back.
func stamp(rec *models.ConversionRecord, now time.Time) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC().Truncate(time.Millisecond)
	}
}
