package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
)

// LayoutRepository implements repositories.LayoutRepository
type LayoutRepository struct {
	db *sqlx.DB
}

// NewLayoutRepository creates a new layout repository
func NewLayoutRepository(db *sql.DB) *LayoutRepository {
	return &LayoutRepository{db: wrap(db)}
}

type layoutRow struct {
	ProjectID string `db:"project_id"`
	Layout    string `db:"layout"`
	UpdatedAt string `db:"updated_at"`
}

// GetLayout retrieves a project's report layout
func (r *LayoutRepository) GetLayout(ctx context.Context, projectID string) (*models.ReportLayout, error) {
	query := `SELECT project_id, layout, updated_at FROM report_layouts WHERE project_id = ?`

	var row layoutRow
	if err := r.db.GetContext(ctx, &row, query, projectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report layout %s: %w", projectID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report layout: %w", err)
	}

	var layout models.ReportLayout
	if err := json.Unmarshal([]byte(row.Layout), &layout); err != nil {
		return nil, fmt.Errorf("failed to decode report layout: %w", err)
	}

	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	layout.ProjectID = row.ProjectID
	layout.UpdatedAt = updated
	return &layout, nil
}

// SaveLayout inserts or replaces a project's report layout
func (r *LayoutRepository) SaveLayout(ctx context.Context, layout *models.ReportLayout) error {
	layout.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(layout)
	if err != nil {
		return fmt.Errorf("failed to encode report layout: %w", err)
	}

	query := `
		INSERT INTO report_layouts (project_id, layout, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			layout = excluded.layout,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, layout.ProjectID, string(data), formatTime(layout.UpdatedAt)); err != nil {
		return fmt.Errorf("failed to save report layout: %w", err)
	}
	return nil
}
