package repositories

import (
	"context"
	"errors"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
)

// ErrNotFound is returned, possibly wrapped, when a record does not exist
var ErrNotFound = errors.New("record not found")

// ChartRepository defines chart configuration data access methods
type ChartRepository interface {
	// ListCharts returns every configuration ordered by order, then chart id
	ListCharts(ctx context.Context) ([]charts.ChartConfiguration, error)
	GetChart(ctx context.Context, chartID string) (*charts.ChartConfiguration, error)
	// SaveChart inserts or replaces a configuration, setting its timestamps
	SaveChart(ctx context.Context, cfg *charts.ChartConfiguration) error
	DeleteChart(ctx context.Context, chartID string) error
}

// LayoutRepository defines report layout data access methods
type LayoutRepository interface {
	GetLayout(ctx context.Context, projectID string) (*models.ReportLayout, error)
	SaveLayout(ctx context.Context, layout *models.ReportLayout) error
}

// StatisticsRepository defines project statistics data access methods
type StatisticsRepository interface {
	// GetStatistics returns ErrNotFound for a project with no statistics
	GetStatistics(ctx context.Context, projectID string) (*models.ProjectStatistics, error)
	// MergeStatistics upserts the given keys, leaving other keys untouched
	MergeStatistics(ctx context.Context, projectID string, values formula.Stats) error
	DeleteStatistic(ctx context.Context, projectID, key string) error
}
