package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
)

func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, db, err := Connect(ctx, config.MongoConfig{
		URI:      uri,
		Database: fmt.Sprintf("eventstats_test_%d", time.Now().UnixNano()),
		Timeout:  10 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, EnsureIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestDocumentRoundTrip(t *testing.T) {
	literal := formula.String("Sold out")
	cfg := charts.ChartConfiguration{
		ChartID:    "banner",
		Type:       charts.TypeText,
		Formatting: charts.Formatting{Decimals: charts.Int(1)},
		Elements:   []charts.Element{{ID: "t", Literal: &literal}},
		Width:      2,
	}

	doc, err := toDocument(cfg)
	require.NoError(t, err)
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var back charts.ChartConfiguration
	require.NoError(t, fromDocument(raw, &back))
	assert.Equal(t, cfg.ChartID, back.ChartID)
	assert.Equal(t, 2, back.Width)
	assert.Equal(t, 1, *back.Formatting.Decimals)
	require.NotNil(t, back.Elements[0].Literal)
	assert.True(t, back.Elements[0].Literal.Equal(literal))
}

func TestPlainValue(t *testing.T) {
	assert.Equal(t, 482.0, plainValue(482))
	assert.Equal(t, "x", plainValue("x"))
	assert.Nil(t, plainValue(true))
	assert.Equal(t, 2.5, plainValue(formula.Number(2.5)))
}

func TestChartStore(t *testing.T) {
	store := NewChartStore(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.SaveChart(ctx, &charts.ChartConfiguration{ChartID: "b", Type: charts.TypeKPI, Order: 2}))
	require.NoError(t, store.SaveChart(ctx, &charts.ChartConfiguration{ChartID: "a", Type: charts.TypeKPI, Order: 1}))

	list, err := store.ListCharts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ChartID)

	require.NoError(t, store.DeleteChart(ctx, "a"))
	_, err = store.GetChart(ctx, "a")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestLayoutStore(t *testing.T) {
	store := NewLayoutStore(setupTestDB(t))
	ctx := context.Background()

	layout := &models.ReportLayout{
		ProjectID:    "p1",
		GridSettings: models.DefaultGridSettings(),
		Blocks:       []models.ReportBlock{{ID: "b1", Visible: true, Charts: []models.BlockChart{{ChartID: "a"}}}},
	}
	require.NoError(t, store.SaveLayout(ctx, layout))

	got, err := store.GetLayout(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.ChartIDs())
}

func TestStatStore(t *testing.T) {
	store := NewStatStore(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.MergeStatistics(ctx, "p1", formula.Stats{"visit.web": 10, "city": "Oslo"}))
	require.NoError(t, store.MergeStatistics(ctx, "p1", formula.Stats{"visit.web": 12}))

	record, err := store.GetStatistics(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, record.Stats.Lookup("visit.web").Equal(formula.Number(12)))
	assert.True(t, record.Stats.Lookup("city").Equal(formula.String("Oslo")))
}
