package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-tolls/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// EnsureExportIndexes creates the indexes the history queries rely on.
func EnsureExportIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "resource", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// MongoExportCollection wraps a MongoDB collection for export audit records.
type MongoExportCollection struct {
	Collection *mongo.Collection
}

// InsertExport inserts an export record into the collection.
func (c *MongoExportCollection) InsertExport(ctx context.Context, record models.ExportRecord) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := c.Collection.InsertOne(ctx, record)
	return err
}

// mongoExportCursor wraps a MongoDB cursor for export queries.
type mongoExportCursor struct {
	cursor *mongo.Cursor
}

// All retrieves all results from the cursor.
func (m *mongoExportCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}

// Close closes the cursor.
func (m *mongoExportCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// FindExports queries export records from the collection.
func (c *MongoExportCollection) FindExports(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (ExportCursor, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoExportCursor{cursor: cursor}, nil
}

// ExportFilter builds the history query for an optional resource.
func ExportFilter(resource string) bson.M {
	if resource == "" {
		return bson.M{}
	}
	return bson.M{"resource": resource}
}

// NewestFirst returns find options for the latest limit records.
func NewestFirst(limit int64) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
}
