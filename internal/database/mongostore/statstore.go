package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
)

// StatStore implements repositories.StatisticsRepository with one document
// per statistic. Statistic names may contain dots, so they are stored as
// values rather than as field names.
type StatStore struct {
	c *mongo.Collection
}

type statDoc struct {
	ProjectID string      `bson:"projectId"`
	Key       string      `bson:"key"`
	Value     interface{} `bson:"value"`
	UpdatedAt time.Time   `bson:"updatedAt"`
}

// NewStatStore creates a statistics store on db
func NewStatStore(db *mongo.Database) *StatStore {
	return &StatStore{c: db.Collection(StatisticsCollection)}
}

// GetStatistics returns the project's full statistics record
func (s *StatStore) GetStatistics(ctx context.Context, projectID string) (*models.ProjectStatistics, error) {
	opts := options.Find().SetSort(bson.D{{Key: "key", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"projectId": projectID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get project statistics: %w", err)
	}
	defer cur.Close(ctx)

	var docs []statDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode project statistics: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("statistics for %s: %w", projectID, repositories.ErrNotFound)
	}

	record := &models.ProjectStatistics{ProjectID: projectID, Stats: make(formula.Stats, len(docs))}
	for _, d := range docs {
		record.Stats[d.Key] = d.Value
		if d.UpdatedAt.After(record.UpdatedAt) {
			record.UpdatedAt = d.UpdatedAt
		}
	}
	return record, nil
}

// MergeStatistics upserts the given keys with one bulk write
func (s *StatStore) MergeStatistics(ctx context.Context, projectID string, values formula.Stats) error {
	if len(values) == 0 {
		return nil
	}

	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(values))
	for key, raw := range values {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"projectId": projectID, "key": key}).
			SetUpdate(bson.M{"$set": bson.M{"value": plainValue(raw), "updatedAt": now}}).
			SetUpsert(true))
	}

	if _, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to save statistics: %w", err)
	}
	return nil
}

// DeleteStatistic removes one statistic
func (s *StatStore) DeleteStatistic(ctx context.Context, projectID, key string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"projectId": projectID, "key": key})
	if err != nil {
		return fmt.Errorf("failed to delete statistic: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("statistic %s/%s: %w", projectID, key, repositories.ErrNotFound)
	}
	return nil
}

// plainValue reduces a statistic to a BSON-native number, string or null
func plainValue(raw interface{}) interface{} {
	v := formula.FromInterface(raw)
	if n, ok := v.AsFloat(); ok {
		return n
	}
	if str, ok := v.AsString(); ok {
		return str
	}
	return nil
}
