// Package mongostore implements the repositories on MongoDB
package mongostore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
)

// Collection names
const (
	ChartsCollection     = "chart_configurations"
	LayoutsCollection    = "report_layouts"
	StatisticsCollection = "project_statistics"
)

// Connect opens a client, pings it and returns the configured database
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the indexes the stores query by
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ChartsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "order", Value: 1}, {Key: "chartId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create chart index: %w", err)
	}

	_, err = db.Collection(StatisticsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "projectId", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create statistics index: %w", err)
	}
	return nil
}

// toDocument converts a JSON-tagged value into a native document so stored
// field names match the API payloads
func toDocument(v interface{}) (bson.D, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// fromDocument is the inverse of toDocument
func fromDocument(raw bson.Raw, out interface{}) error {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
