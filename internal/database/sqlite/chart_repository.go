package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
)

// ChartRepository implements repositories.ChartRepository. The full
// configuration is stored as a JSON document next to the columns used for
// ordering and filtering.
type ChartRepository struct {
	db *sqlx.DB
}

// NewChartRepository creates a new chart repository
func NewChartRepository(db *sql.DB) *ChartRepository {
	return &ChartRepository{db: wrap(db)}
}

type chartRow struct {
	ChartID   string `db:"chart_id"`
	Config    string `db:"config"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (row chartRow) toConfiguration() (charts.ChartConfiguration, error) {
	var cfg charts.ChartConfiguration
	if err := json.Unmarshal([]byte(row.Config), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode chart %s: %w", row.ChartID, err)
	}

	var err error
	if cfg.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return cfg, err
	}
	if cfg.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return cfg, err
	}
	cfg.ChartID = row.ChartID
	return cfg, nil
}

// ListCharts returns every configuration ordered by order, then chart id
func (r *ChartRepository) ListCharts(ctx context.Context) ([]charts.ChartConfiguration, error) {
	query := `
		SELECT chart_id, config, created_at, updated_at
		FROM chart_configurations
		ORDER BY sort_order, chart_id
	`

	var rows []chartRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list chart configurations: %w", err)
	}

	configs := make([]charts.ChartConfiguration, 0, len(rows))
	for _, row := range rows {
		cfg, err := row.toConfiguration()
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// GetChart retrieves a configuration by chart id
func (r *ChartRepository) GetChart(ctx context.Context, chartID string) (*charts.ChartConfiguration, error) {
	query := `
		SELECT chart_id, config, created_at, updated_at
		FROM chart_configurations WHERE chart_id = ?
	`

	var row chartRow
	if err := r.db.GetContext(ctx, &row, query, chartID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("chart configuration %s: %w", chartID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get chart configuration: %w", err)
	}

	cfg, err := row.toConfiguration()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveChart inserts or replaces a configuration. CreatedAt is kept from the
// first save.
func (r *ChartRepository) SaveChart(ctx context.Context, cfg *charts.ChartConfiguration) error {
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode chart configuration: %w", err)
	}

	query := `
		INSERT INTO chart_configurations (chart_id, chart_type, sort_order, is_active, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chart_id) DO UPDATE SET
			chart_type = excluded.chart_type,
			sort_order = excluded.sort_order,
			is_active = excluded.is_active,
			config = excluded.config,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		cfg.ChartID, string(cfg.Type), cfg.Order, cfg.IsActive, string(data),
		formatTime(cfg.CreatedAt), formatTime(cfg.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save chart configuration: %w", err)
	}

	// the stored created_at wins over a fresh one on update
	var created string
	if err := r.db.GetContext(ctx, &created, `SELECT created_at FROM chart_configurations WHERE chart_id = ?`, cfg.ChartID); err == nil {
		if t, err := parseTime(created); err == nil {
			cfg.CreatedAt = t
		}
	}
	return nil
}

// DeleteChart removes a configuration
func (r *ChartRepository) DeleteChart(ctx context.Context, chartID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chart_configurations WHERE chart_id = ?`, chartID)
	if err != nil {
		return fmt.Errorf("failed to delete chart configuration: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("chart configuration %s: %w", chartID, repositories.ErrNotFound)
	}
	return nil
}
