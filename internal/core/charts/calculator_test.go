package charts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

func kpiOf(t *testing.T, r ChartResult) KPIBody {
	t.Helper()
	body, ok := r.Body.(KPIBody)
	require.True(t, ok, "expected KPIBody, got %T", r.Body)
	return body
}

func seriesOf(t *testing.T, r ChartResult) SeriesBody {
	t.Helper()
	body, ok := r.Body.(SeriesBody)
	require.True(t, ok, "expected SeriesBody, got %T", r.Body)
	return body
}

func TestCalculate_KPIRounded(t *testing.T) {
	cfg := ChartConfiguration{
		ChartID:    "attendees",
		Type:       TypeKPI,
		Elements:   []Element{{ID: "a", Ref: "eventAttendees"}},
		Formatting: Formatting{Rounded: Bool(true)},
	}

	result := Calculate(cfg, formula.Stats{"eventAttendees": 482})

	body := kpiOf(t, result)
	n, ok := body.Value.AsFloat()
	require.True(t, ok)
	assert.Equal(t, 482.0, n)
	assert.Equal(t, "482", body.Formatted)
	assert.False(t, result.Error)
	assert.True(t, HasValidData(result))
}

func TestCalculate_PiePercentages(t *testing.T) {
	cfg := ChartConfiguration{
		ChartID: "gender",
		Type:    TypePie,
		Elements: []Element{
			{ID: "f", Label: "Female", Ref: "female"},
			{ID: "m", Label: "Male", Ref: "male"},
		},
	}

	result := Calculate(cfg, formula.Stats{"female": 30, "male": 70})

	body := seriesOf(t, result)
	require.Len(t, body.Elements, 2)
	assert.Equal(t, 100.0, body.Total)

	f, _ := body.Elements[0].Value.AsFloat()
	m, _ := body.Elements[1].Value.AsFloat()
	assert.Equal(t, 30.0, f)
	assert.Equal(t, 70.0, m)

	fp, _ := body.Elements[0].Percentage.AsFloat()
	mp, _ := body.Elements[1].Percentage.AsFloat()
	assert.Equal(t, 30.0, fp)
	assert.Equal(t, 70.0, mp)
	assert.True(t, HasValidData(result))
}

func TestCalculate_MissingVariableDropsBar(t *testing.T) {
	cfg := ChartConfiguration{
		ChartID:  "visits",
		Type:     TypeBar,
		Elements: []Element{{ID: "web", Ref: "visitWeb"}},
	}

	result := Calculate(cfg, formula.Stats{"visitFacebook": 12})

	body := seriesOf(t, result)
	require.Len(t, body.Elements, 1)
	assert.True(t, body.Elements[0].Value.IsNA())
	assert.True(t, body.Elements[0].Percentage.IsNA())
	assert.Equal(t, "NA", body.Elements[0].Formatted)
	assert.False(t, HasValidData(result))
	assert.False(t, result.Error)
}

func TestCalculate_ZeroOverZeroIsNA(t *testing.T) {
	cfg := ChartConfiguration{
		ChartID: "approval",
		Type:    TypeKPI,
		Formula: "approvedImages / (approvedImages + rejectedImages)",
	}

	result := Calculate(cfg, formula.Stats{"approvedImages": 0, "rejectedImages": 0})

	body := kpiOf(t, result)
	assert.True(t, body.Value.IsNA())
	assert.Equal(t, "NA", body.Formatted)
	assert.False(t, HasValidData(result))
}

func TestCalculate_KPIZeroIsValid(t *testing.T) {
	cfg := ChartConfiguration{ChartID: "z", Type: TypeKPI, Elements: []Element{{ID: "a", Ref: "count"}}}
	result := Calculate(cfg, formula.Stats{"count": 0})

	assert.True(t, HasValidData(result))
	assert.Equal(t, "0.00", kpiOf(t, result).Formatted)
}

func TestCalculate_FormulaTakesPrecedenceForKPI(t *testing.T) {
	cfg := ChartConfiguration{
		ChartID:    "ratio",
		Type:       TypeKPI,
		Formula:    "merched / fans * 100",
		Elements:   []Element{{ID: "ignored", Ref: "fans"}},
		Formatting: Formatting{Rounded: Bool(true), Suffix: "%"},
	}

	result := Calculate(cfg, formula.Stats{"merched": 25, "fans": 200})
	assert.Equal(t, "13%", kpiOf(t, result).Formatted)
}

func TestCalculate_ContentTypes(t *testing.T) {
	stats := formula.Stats{
		"summary":  "## Great event",
		"imageUrl": "https://cdn.example.com/hero.jpg",
		"table":    "| a | b |\n|---|---|\n| 1 | 2 |",
		"empty":    "",
		"count":    12,
	}

	tests := []struct {
		name      string
		cfgType   ChartType
		ref       string
		valid     bool
		formatted string
	}{
		{"text", TypeText, "summary", true, "## Great event"},
		{"text from number", TypeText, "count", true, "12"},
		{"text missing", TypeText, "nothing", false, "NA"},
		{"text empty", TypeText, "empty", false, ""},
		{"image", TypeImage, "imageUrl", true, "https://cdn.example.com/hero.jpg"},
		{"image number rejected", TypeImage, "count", false, "NA"},
		{"table", TypeTable, "table", true, "| a | b |\n|---|---|\n| 1 | 2 |"},
		{"table missing", TypeTable, "nothing", false, "NA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ChartConfiguration{ChartID: tt.name, Type: tt.cfgType, Elements: []Element{{ID: "x", Ref: tt.ref}}}
			result := Calculate(cfg, stats)
			assert.Equal(t, tt.valid, HasValidData(result))
			assert.Equal(t, tt.formatted, kpiOf(t, result).Formatted)
		})
	}
}

func TestCalculate_NAMarkerIsInvalid(t *testing.T) {
	stats := formula.Stats{"x": "NA"}

	for _, chartType := range []ChartType{TypeKPI, TypeText, TypeImage, TypeTable} {
		t.Run(string(chartType), func(t *testing.T) {
			cfg := ChartConfiguration{ChartID: "c", Type: chartType, Elements: []Element{{ID: "x", Ref: "x"}}}
			result := Calculate(cfg, stats)
			assert.False(t, HasValidData(result))

			data, err := json.Marshal(result)
			require.NoError(t, err)
			var decoded ChartResult
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, HasValidData(result), HasValidData(decoded))
		})
	}
}

func TestHasValidData_NAStringValue(t *testing.T) {
	for _, chartType := range []ChartType{TypeKPI, TypeText, TypeImage, TypeTable} {
		r := ChartResult{ChartID: "c", Type: chartType, Body: KPIBody{Value: formula.String("NA"), Formatted: "NA"}}
		assert.False(t, HasValidData(r), string(chartType))
	}
}

func TestCalculate_ValueComposite(t *testing.T) {
	cfg := ChartConfiguration{
		ChartID: "merch",
		Type:    TypeValue,
		Formula: "jersey + scarf",
		Elements: []Element{
			{ID: "j", Label: "Jersey", Ref: "jersey"},
			{ID: "s", Label: "Scarf", Ref: "scarf"},
		},
		Formatting: Formatting{Rounded: Bool(true)},
	}

	result := Calculate(cfg, formula.Stats{"jersey": 10, "scarf": 30})
	body, ok := result.Body.(CompositeBody)
	require.True(t, ok)
	assert.Equal(t, "40", body.KPI.Formatted)
	assert.Equal(t, 40.0, body.Series.Total)
	assert.True(t, HasValidData(result))

	// bar half decides validity even when the KPI half resolves
	zero := Calculate(cfg, formula.Stats{"jersey": 0, "scarf": 0})
	assert.False(t, HasValidData(zero))
	assert.Equal(t, "0", zero.Body.(CompositeBody).KPI.Formatted)
}

func TestCalculate_SeriesValidity(t *testing.T) {
	tests := []struct {
		name  string
		stats formula.Stats
		valid bool
	}{
		{"all positive", formula.Stats{"a": 1, "b": 2}, true},
		{"one missing", formula.Stats{"a": 5}, true},
		{"all zero", formula.Stats{"a": 0, "b": 0}, false},
		{"negative total", formula.Stats{"a": -5, "b": 2}, false},
		{"all missing", formula.Stats{}, false},
		{"numeric strings", formula.Stats{"a": "3", "b": "4"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ChartConfiguration{
				ChartID:  "s",
				Type:     TypeBar,
				Elements: []Element{{ID: "a", Ref: "a"}, {ID: "b", Ref: "b"}},
			}
			assert.Equal(t, tt.valid, HasValidData(Calculate(cfg, tt.stats)))
		})
	}
}

func TestCalculate_PercentagesSumToHundred(t *testing.T) {
	statsSets := []formula.Stats{
		{"a": 1, "b": 1, "c": 1},
		{"a": 7, "b": 13, "c": 29},
		{"a": 0.3, "b": 99.1, "c": 5},
		{"a": 3, "c": 11},
	}

	for _, stats := range statsSets {
		cfg := ChartConfiguration{
			ChartID:  "p",
			Type:     TypePie,
			Elements: []Element{{ID: "a", Ref: "a"}, {ID: "b", Ref: "b"}, {ID: "c", Ref: "c"}},
		}
		body := seriesOf(t, Calculate(cfg, stats))

		sum := 0.0
		for _, el := range body.Elements {
			if p, ok := el.Percentage.AsFloat(); ok {
				sum += p
			}
		}
		assert.InDelta(t, 100, sum, 0.5)
	}
}

func TestCalculate_Literals(t *testing.T) {
	lit := formula.Number(25)
	cfg := ChartConfiguration{
		ChartID: "lit",
		Type:    TypeBar,
		Elements: []Element{
			{ID: "target", Literal: &lit},
			{ID: "actual", Ref: "actual"},
		},
	}
	body := seriesOf(t, Calculate(cfg, formula.Stats{"actual": 75}))
	assert.Equal(t, 100.0, body.Total)
}

func TestCalculate_Deterministic(t *testing.T) {
	cfg := ChartConfiguration{
		ChartID:  "d",
		Type:     TypePie,
		Elements: []Element{{ID: "a", Ref: "a / 3"}, {ID: "b", Ref: "b"}},
	}
	stats := formula.Stats{"a": 10, "b": 20}

	first := Calculate(cfg, stats)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Calculate(cfg, stats))
	}
}

func TestCalculateAll(t *testing.T) {
	cfgs := []ChartConfiguration{
		{ChartID: "a", Type: TypeKPI, Elements: []Element{{ID: "x", Ref: "x"}}},
		{ChartID: "b", Type: TypeText, Elements: []Element{{ID: "y", Ref: "y"}}},
	}
	results := CalculateAll(cfgs, formula.Stats{"x": 1})
	require.Len(t, results, 2)
	assert.True(t, HasValidData(results["a"]))
	assert.False(t, HasValidData(results["b"]))
}

func TestMissingResult(t *testing.T) {
	r := MissingResult("ghost")
	assert.True(t, r.Error)
	assert.False(t, HasValidData(r))
}

func TestFilterValid(t *testing.T) {
	results := map[string]ChartResult{
		"ok":      Calculate(ChartConfiguration{ChartID: "ok", Type: TypeKPI, Formula: "1"}, nil),
		"na":      Calculate(ChartConfiguration{ChartID: "na", Type: TypeKPI, Formula: "x"}, nil),
		"missing": MissingResult("missing"),
	}
	assert.Equal(t, []string{"ok"}, FilterValid([]string{"na", "ok", "missing", "unknown"}, results))
}
