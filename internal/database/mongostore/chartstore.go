package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
)

// ChartStore implements repositories.ChartRepository
type ChartStore struct {
	c *mongo.Collection
}

// NewChartStore creates a chart store on db
func NewChartStore(db *mongo.Database) *ChartStore {
	return &ChartStore{c: db.Collection(ChartsCollection)}
}

// ListCharts returns every configuration ordered by order, then chart id
func (s *ChartStore) ListCharts(ctx context.Context) ([]charts.ChartConfiguration, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "chartId", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chart configurations: %w", err)
	}
	defer cur.Close(ctx)

	var configs []charts.ChartConfiguration
	for cur.Next(ctx) {
		var cfg charts.ChartConfiguration
		if err := fromDocument(cur.Current, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode chart configuration: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chart configurations: %w", err)
	}
	return configs, nil
}

// GetChart retrieves a configuration by chart id
func (s *ChartStore) GetChart(ctx context.Context, chartID string) (*charts.ChartConfiguration, error) {
	raw, err := s.c.FindOne(ctx, bson.M{"_id": chartID}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("chart configuration %s: %w", chartID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get chart configuration: %w", err)
	}

	var cfg charts.ChartConfiguration
	if err := fromDocument(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode chart configuration: %w", err)
	}
	return &cfg, nil
}

// SaveChart inserts or replaces a configuration, keeping the first CreatedAt
func (s *ChartStore) SaveChart(ctx context.Context, cfg *charts.ChartConfiguration) error {
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		if existing, err := s.GetChart(ctx, cfg.ChartID); err == nil {
			cfg.CreatedAt = existing.CreatedAt
		} else {
			cfg.CreatedAt = now
		}
	}
	cfg.UpdatedAt = now

	doc, err := toDocument(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode chart configuration: %w", err)
	}
	doc = append(bson.D{{Key: "_id", Value: cfg.ChartID}}, doc...)

	_, err = s.c.ReplaceOne(ctx, bson.M{"_id": cfg.ChartID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save chart configuration: %w", err)
	}
	return nil
}

// DeleteChart removes a configuration
func (s *ChartStore) DeleteChart(ctx context.Context, chartID string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": chartID})
	if err != nil {
		return fmt.Errorf("failed to delete chart configuration: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("chart configuration %s: %w", chartID, repositories.ErrNotFound)
	}
	return nil
}
