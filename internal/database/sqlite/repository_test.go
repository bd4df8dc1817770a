package sqlite

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/migrations"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	files, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	sort.Strings(files)
	for _, name := range files {
		body, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		_, err = db.Exec(string(body))
		require.NoError(t, err, name)
	}
	return db
}

func TestChartRepository_CRUD(t *testing.T) {
	repo := NewChartRepository(setupTestDB(t))
	ctx := context.Background()

	literal := formula.Number(5)
	cfg := &charts.ChartConfiguration{
		ChartID:    "attendance",
		Title:      "Attendance",
		Type:       charts.TypePie,
		Order:      2,
		IsActive:   true,
		Formatting: charts.Formatting{Rounded: charts.Bool(true), Suffix: "%"},
		Elements: []charts.Element{
			{ID: "f", Label: "Female", Ref: "female", Color: "#f0f"},
			{ID: "x", Label: "Other", Literal: &literal},
		},
	}
	require.NoError(t, repo.SaveChart(ctx, cfg))
	assert.False(t, cfg.CreatedAt.IsZero())
	require.NoError(t, repo.SaveChart(ctx, &charts.ChartConfiguration{ChartID: "first", Type: charts.TypeKPI, Order: 1}))

	got, err := repo.GetChart(ctx, "attendance")
	require.NoError(t, err)
	assert.Equal(t, "Attendance", got.Title)
	require.Len(t, got.Elements, 2)
	require.NotNil(t, got.Elements[1].Literal)
	assert.True(t, got.Elements[1].Literal.Equal(literal))
	assert.True(t, *got.Formatting.Rounded)

	list, err := repo.ListCharts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].ChartID)

	created := got.CreatedAt
	got.Title = "Attendance split"
	require.NoError(t, repo.SaveChart(ctx, got))
	again, err := repo.GetChart(ctx, "attendance")
	require.NoError(t, err)
	assert.Equal(t, "Attendance split", again.Title)
	assert.True(t, created.Equal(again.CreatedAt))

	require.NoError(t, repo.DeleteChart(ctx, "attendance"))
	_, err = repo.GetChart(ctx, "attendance")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteChart(ctx, "attendance"), repositories.ErrNotFound)
}

func TestLayoutRepository_SaveAndGet(t *testing.T) {
	repo := NewLayoutRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.GetLayout(ctx, "p1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	layout := &models.ReportLayout{
		ProjectID:    "p1",
		GridSettings: models.GridSettings{DesktopUnits: 3, TabletUnits: 2, MobileUnits: 1},
		Blocks: []models.ReportBlock{
			{ID: "overview", Title: "Overview", Visible: true, Charts: []models.BlockChart{{ChartID: "a", Width: 2}}},
		},
	}
	require.NoError(t, repo.SaveLayout(ctx, layout))

	got, err := repo.GetLayout(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, layout.Blocks, got.Blocks)
	assert.Equal(t, 3, got.GridSettings.DesktopUnits)
	assert.False(t, got.UpdatedAt.IsZero())

	layout.Blocks[0].Title = "Summary"
	require.NoError(t, repo.SaveLayout(ctx, layout))
	got, err = repo.GetLayout(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Summary", got.Blocks[0].Title)
}

func TestStatisticsRepository_MergeKeepsKinds(t *testing.T) {
	repo := NewStatisticsRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.GetStatistics(ctx, "p1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, repo.MergeStatistics(ctx, "p1", formula.Stats{
		"eventAttendees": 482,
		"heroImage":      "https://cdn.example.com/hero.jpg",
		"ratio":          0.25,
	}))
	require.NoError(t, repo.MergeStatistics(ctx, "p1", formula.Stats{"eventAttendees": 500}))
	require.NoError(t, repo.MergeStatistics(ctx, "p2", formula.Stats{"eventAttendees": 1}))

	record, err := repo.GetStatistics(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, record.Stats, 3)
	assert.True(t, record.Stats.Lookup("eventAttendees").Equal(formula.Number(500)))
	assert.True(t, record.Stats.Lookup("ratio").Equal(formula.Number(0.25)))
	assert.True(t, record.Stats.Lookup("heroImage").IsString())

	require.NoError(t, repo.DeleteStatistic(ctx, "p1", "ratio"))
	assert.ErrorIs(t, repo.DeleteStatistic(ctx, "p1", "ratio"), repositories.ErrNotFound)
}

func TestDecodeStatValue(t *testing.T) {
	v, err := decodeStatValue("12.50")
	require.NoError(t, err)
	assert.True(t, formula.FromInterface(v).Equal(formula.Number(12.5)))

	v, err = decodeStatValue(`"NA"`)
	require.NoError(t, err)
	assert.Equal(t, "NA", v)

	_, err = decodeStatValue(strings.Repeat("{", 3))
	assert.Error(t, err)
}
