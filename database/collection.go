package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ml4e-club/ml4e-site-backend/models"
)

// Collection is an append-only store of one record type. FindAll always
// returns the full collection, newest first.
type Collection[T models.Record] interface {
	FindAll(ctx context.Context) ([]T, error)
	Add(ctx context.Context, record T) error
}

var now = func() time.Time {
	return time.Now().UTC()
}

type gormCollection[T models.Record] struct {
	manager *Manager
}

func newGormCollection[T models.Record](manager *Manager) *gormCollection[T] {
	return &gormCollection[T]{manager}
}

// FindAll returns every record, newest first
func (c *gormCollection[T]) FindAll(ctx context.Context) ([]T, error) {
	records := make([]T, 0)
	err := c.manager.Session(ctx).Order("created_at DESC").Find(&records).Error
	return records, err
}

// Add stamps and inserts one record
func (c *gormCollection[T]) Add(ctx context.Context, record T) error {
	record.Stamp(uuid.NewString(), now())
	return c.manager.Session(ctx).Create(record).Error
}

type mongoCollection[T models.Record] struct {
	coll *mongo.Collection
}

func newMongoCollection[T models.Record](manager *Manager, name string) *mongoCollection[T] {
	return &mongoCollection[T]{manager.MongoCollection(name)}
}

func (c *mongoCollection[T]) FindAll(ctx context.Context) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := c.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}

	records := make([]T, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *mongoCollection[T]) Add(ctx context.Context, record T) error {
	record.Stamp(uuid.NewString(), now())
	_, err := c.coll.InsertOne(ctx, record)
	return err
}
