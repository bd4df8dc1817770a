package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
)

// StatisticsRepository implements repositories.StatisticsRepository with
// one row per statistic. Values are stored JSON-encoded so numbers and
// strings keep their kind.
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new statistics repository
func NewStatisticsRepository(db *sql.DB) *StatisticsRepository {
	return &StatisticsRepository{db: wrap(db)}
}

type statRow struct {
	Key       string `db:"stat_key"`
	Value     string `db:"stat_value"`
	UpdatedAt string `db:"updated_at"`
}

// GetStatistics returns the project's full statistics record
func (r *StatisticsRepository) GetStatistics(ctx context.Context, projectID string) (*models.ProjectStatistics, error) {
	query := `
		SELECT stat_key, stat_value, updated_at
		FROM project_statistics WHERE project_id = ?
		ORDER BY stat_key
	`

	var rows []statRow
	if err := r.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to get project statistics: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("statistics for %s: %w", projectID, repositories.ErrNotFound)
	}

	record := &models.ProjectStatistics{ProjectID: projectID, Stats: make(formula.Stats, len(rows))}
	for _, row := range rows {
		value, err := decodeStatValue(row.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode statistic %s: %w", row.Key, err)
		}
		record.Stats[row.Key] = value

		if updated, err := parseTime(row.UpdatedAt); err == nil && updated.After(record.UpdatedAt) {
			record.UpdatedAt = updated
		}
	}
	return record, nil
}

// MergeStatistics upserts the given keys in one transaction
func (r *StatisticsRepository) MergeStatistics(ctx context.Context, projectID string, values formula.Stats) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO project_statistics (project_id, stat_key, stat_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id, stat_key) DO UPDATE SET
			stat_value = excluded.stat_value,
			updated_at = excluded.updated_at
	`

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := formatTime(time.Now())
	for _, key := range keys {
		encoded, err := json.Marshal(values[key])
		if err != nil {
			return fmt.Errorf("failed to encode statistic %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, query, projectID, key, string(encoded), now); err != nil {
			return fmt.Errorf("failed to save statistic %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit statistics: %w", err)
	}
	return nil
}

// DeleteStatistic removes one statistic
func (r *StatisticsRepository) DeleteStatistic(ctx context.Context, projectID, key string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM project_statistics WHERE project_id = ? AND stat_key = ?`, projectID, key)
	if err != nil {
		return fmt.Errorf("failed to delete statistic: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("statistic %s/%s: %w", projectID, key, repositories.ErrNotFound)
	}
	return nil
}

func decodeStatValue(raw string) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
