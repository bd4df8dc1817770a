package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

// ExportNA is how a missing value is written to exports
const ExportNA = "N/A"

var csvHeader = []string{"chart_id", "type", "title", "element", "value", "formatted", "percentage"}

// XLSXSheet is the worksheet WriteXLSX fills
const XLSXSheet = "Report"

// numeric export columns, written as numbers in spreadsheets
const (
	valueColumn      = 4
	percentageColumn = 6
)

// WriteCSV writes the rendered charts of a report, one line per KPI and
// one per series element. NA is always written as N/A.
func WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, id := range report.RenderedIDs() {
		for _, record := range exportRecords(report.Results[id]) {
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write csv record: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func exportRecords(r charts.ChartResult) [][]string {
	head := []string{r.ChartID, string(r.Type), r.Title}

	kpi := func(body charts.KPIBody) []string {
		return append(head[:3:3], "", exportValue(body.Value), exportText(body.Value, body.Formatted), "")
	}
	series := func(body charts.SeriesBody) [][]string {
		records := make([][]string, 0, len(body.Elements))
		for _, el := range body.Elements {
			label := el.Label
			if label == "" {
				label = el.ID
			}
			records = append(records, append(head[:3:3],
				label,
				exportValue(el.Value),
				exportText(el.Value, el.Formatted),
				exportValue(el.Percentage),
			))
		}
		return records
	}

	switch body := r.Body.(type) {
	case charts.KPIBody:
		return [][]string{kpi(body)}
	case charts.SeriesBody:
		return series(body)
	case charts.CompositeBody:
		return append([][]string{kpi(body.KPI)}, series(body.Series)...)
	default:
		return nil
	}
}

func exportValue(v formula.Value) string {
	if n, ok := v.AsFloat(); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	if s, ok := v.AsString(); ok {
		return s
	}
	return ExportNA
}

func exportText(v formula.Value, formatted string) string {
	if v.IsNA() {
		return ExportNA
	}
	return formatted
}

// WriteXLSX writes the same records as WriteCSV into a single worksheet.
// Values and percentages are numeric cells; NA stays the text N/A.
func WriteXLSX(w io.Writer, report *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), XLSXSheet); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	header := make([]interface{}, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(XLSXSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(XLSXSheet, 1, 1, style)
	}

	row := 2
	for _, id := range report.RenderedIDs() {
		for _, record := range exportRecords(report.Results[id]) {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := spreadsheetRow(record)
			if err := f.SetSheetRow(XLSXSheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write xlsx row %d: %w", row, err)
			}
			row++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func spreadsheetRow(record []string) []interface{} {
	out := make([]interface{}, len(record))
	for i, v := range record {
		out[i] = v
		if i != valueColumn && i != percentageColumn {
			continue
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[i] = n
		}
	}
	return out
}
