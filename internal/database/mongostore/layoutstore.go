package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
)

// LayoutStore implements repositories.LayoutRepository. Layouts are keyed
// by project id.
type LayoutStore struct {
	c *mongo.Collection
}

// NewLayoutStore creates a layout store on db
func NewLayoutStore(db *mongo.Database) *LayoutStore {
	return &LayoutStore{c: db.Collection(LayoutsCollection)}
}

// GetLayout retrieves a project's report layout
func (s *LayoutStore) GetLayout(ctx context.Context, projectID string) (*models.ReportLayout, error) {
	var layout models.ReportLayout
	if err := s.c.FindOne(ctx, bson.M{"_id": projectID}).Decode(&layout); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("report layout %s: %w", projectID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report layout: %w", err)
	}
	return &layout, nil
}

// SaveLayout inserts or replaces a project's report layout
func (s *LayoutStore) SaveLayout(ctx context.Context, layout *models.ReportLayout) error {
	layout.UpdatedAt = time.Now().UTC()

	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": layout.ProjectID}, layout, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save report layout: %w", err)
	}
	return nil
}
