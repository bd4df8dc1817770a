package charts

import (
	"encoding/json"
	"fmt"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

// ChartResult is the calculated output for one chart configuration. The
// payload lives in Body, which is exactly one of KPIBody, SeriesBody or
// CompositeBody.
type ChartResult struct {
	ChartID         string
	Type            ChartType
	Title           string
	Subtitle        string
	ShowTitle       bool
	ShowPercentages bool
	Formatting      Formatting
	AspectRatio     string
	Width           int
	Error           bool
	Body            Body
}

// Body is the type-specific payload of a ChartResult
type Body interface {
	isBody()
}

// KPIBody carries a single value: kpi, text, image and table charts
type KPIBody struct {
	Value     formula.Value
	Formatted string
}

// SeriesBody carries the resolved elements of a pie or bar chart
type SeriesBody struct {
	Elements []ResultElement
	Total    float64
}

// CompositeBody is the value chart: a KPI half and a bar half computed from
// the same configuration
type CompositeBody struct {
	KPI    KPIBody
	Series SeriesBody
}

func (KPIBody) isBody()       {}
func (SeriesBody) isBody()    {}
func (CompositeBody) isBody() {}

// ResultElement is one resolved element of a series
type ResultElement struct {
	ID         string        `json:"id"`
	Label      string        `json:"label"`
	Color      string        `json:"color,omitempty"`
	Value      formula.Value `json:"value"`
	Formatted  string        `json:"formattedValue"`
	Percentage formula.Value `json:"percentage"`
}

// wireResult is the flat JSON shape handed to renderers
type wireResult struct {
	ChartID         string           `json:"chartId"`
	Type            ChartType        `json:"type"`
	Title           string           `json:"title"`
	Subtitle        string           `json:"subtitle,omitempty"`
	ShowTitle       bool             `json:"showTitle"`
	ShowPercentages bool             `json:"showPercentages"`
	Formatting      Formatting       `json:"formatting"`
	AspectRatio     string           `json:"aspectRatio,omitempty"`
	Width           int              `json:"width"`
	Error           bool             `json:"error"`
	KPIValue        *formula.Value   `json:"kpiValue,omitempty"`
	FormattedValue  *string          `json:"formattedValue,omitempty"`
	Elements        *[]ResultElement `json:"elements,omitempty"`
	Total           *float64         `json:"total,omitempty"`
}

// MarshalJSON flattens the body into kpiValue / elements / total fields
func (r ChartResult) MarshalJSON() ([]byte, error) {
	w := wireResult{
		ChartID:         r.ChartID,
		Type:            r.Type,
		Title:           r.Title,
		Subtitle:        r.Subtitle,
		ShowTitle:       r.ShowTitle,
		ShowPercentages: r.ShowPercentages,
		Formatting:      r.Formatting,
		AspectRatio:     r.AspectRatio,
		Width:           r.Width,
		Error:           r.Error,
	}

	switch body := r.Body.(type) {
	case KPIBody:
		w.KPIValue, w.FormattedValue = &body.Value, &body.Formatted
	case SeriesBody:
		w.Elements, w.Total = seriesWire(body)
	case CompositeBody:
		w.KPIValue, w.FormattedValue = &body.KPI.Value, &body.KPI.Formatted
		w.Elements, w.Total = seriesWire(body.Series)
	}

	return json.Marshal(w)
}

func seriesWire(s SeriesBody) (*[]ResultElement, *float64) {
	elements := s.Elements
	if elements == nil {
		elements = []ResultElement{}
	}
	total := s.Total
	return &elements, &total
}

// UnmarshalJSON rebuilds the body from the chart type
func (r *ChartResult) UnmarshalJSON(data []byte) error {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*r = ChartResult{
		ChartID:         w.ChartID,
		Type:            w.Type,
		Title:           w.Title,
		Subtitle:        w.Subtitle,
		ShowTitle:       w.ShowTitle,
		ShowPercentages: w.ShowPercentages,
		Formatting:      w.Formatting,
		AspectRatio:     w.AspectRatio,
		Width:           w.Width,
		Error:           w.Error,
	}
	if w.Error {
		return nil
	}

	kpi := KPIBody{}
	if w.KPIValue != nil {
		kpi.Value = *w.KPIValue
	}
	if w.FormattedValue != nil {
		kpi.Formatted = *w.FormattedValue
	}
	series := SeriesBody{}
	if w.Elements != nil {
		series.Elements = *w.Elements
	}
	if w.Total != nil {
		series.Total = *w.Total
	}

	switch w.Type {
	case TypeKPI, TypeText, TypeImage, TypeTable:
		r.Body = kpi
	case TypePie, TypeBar:
		r.Body = series
	case TypeValue:
		r.Body = CompositeBody{KPI: kpi, Series: series}
	default:
		return fmt.Errorf("unknown chart type %q", w.Type)
	}
	return nil
}

// MissingResult marks a referenced chart whose configuration does not exist
func MissingResult(chartID string) ChartResult {
	return ChartResult{ChartID: chartID, Error: true}
}
