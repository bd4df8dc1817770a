package dashboard

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

func TestWriteCSV_NAIsNeverZeroOrEmpty(t *testing.T) {
	configs := []charts.ChartConfiguration{
		{
			ChartID:         "gender",
			Title:           "Gender",
			Type:            charts.TypePie,
			ShowPercentages: true,
			Formatting:      charts.Formatting{Rounded: charts.Bool(true)},
			Elements: []charts.Element{
				{ID: "f", Label: "Female", Ref: "female"},
				{ID: "m", Label: "Male", Ref: "male"},
				{ID: "d", Label: "Diverse", Ref: "diverse"},
			},
		},
		{
			ChartID:  "ratio",
			Title:    "Ratio",
			Type:     charts.TypeValue,
			Formula:  "approved / rejected",
			Elements: []charts.Element{{ID: "a", Label: "Approved", Ref: "approved"}},
		},
	}
	stats := formula.Stats{"female": 30, "male": 70, "approved": 4, "rejected": 0}

	a := NewAssembler(DefaultAssemblerOptions(), quietLogger())
	report := a.Assemble(singleBlock("gender", "ratio"), configs, stats, 1200)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+3+2)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"gender", "pie", "Gender", "Female", "30", "30", "30"}, records[1])
	assert.Equal(t, []string{"gender", "pie", "Gender", "Diverse", ExportNA, ExportNA, ExportNA}, records[3])
	assert.Equal(t, []string{"ratio", "value", "Ratio", "", ExportNA, ExportNA, ""}, records[4])
	assert.Equal(t, "4", records[5][4])
}

func TestWriteCSV_SkipsExcludedCharts(t *testing.T) {
	a := NewAssembler(DefaultAssemblerOptions(), quietLogger())
	report := a.Assemble(singleBlock("web", "attendees"), testConfigs(), testStats(), 1200)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report))
	assert.NotContains(t, buf.String(), "web,")
	assert.Contains(t, buf.String(), "attendees,kpi,,,482,482,")
}

func TestWriteXLSX(t *testing.T) {
	a := NewAssembler(DefaultAssemblerOptions(), quietLogger())
	stats := testStats()
	report := a.Assemble(singleBlock("web", "attendees"), testConfigs(), stats, 1200)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(XLSXSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"attendees", "kpi", "", "", "482", "482"}, rows[1])

	cellType, err := f.GetCellType(XLSXSheet, "E2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType)
}

func TestSpreadsheetRow_KeepsNAAsText(t *testing.T) {
	row := spreadsheetRow([]string{"g", "pie", "G", "Diverse", ExportNA, ExportNA, "12.5"})
	assert.Equal(t, ExportNA, row[valueColumn])
	assert.Equal(t, ExportNA, row[5])
	assert.Equal(t, 12.5, row[percentageColumn])
}
