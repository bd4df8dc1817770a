// Package dashboard assembles calculated chart results into laid-out
// reports and serves them from stored configurations, layouts and
// statistics.
package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/layout"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
)

// Report is a fully calculated and laid-out project report
type Report struct {
	ProjectID   string                        `json:"projectId"`
	WidthPx     float64                       `json:"widthPx"`
	GridUnits   int                           `json:"gridUnits"`
	Results     map[string]charts.ChartResult `json:"results"`
	Blocks      []RenderedBlock               `json:"blocks"`
	Excluded    []string                      `json:"excluded"`
	Missing     []string                      `json:"missing"`
	GeneratedAt time.Time                     `json:"generatedAt"`

	grid models.GridSettings
}

// RenderedBlock is a visible block with at least one valid chart
type RenderedBlock struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Order int           `json:"order"`
	Rows  []RenderedRow `json:"rows"`

	cells []layout.CellConfiguration
}

// RenderedRow is one solved row and the column policy for the viewport
type RenderedRow struct {
	layout.RowLayout
	Policy layout.ColumnPolicy `json:"policy"`
}

// RenderedIDs returns the chart ids that were laid out, in render order
func (r *Report) RenderedIDs() []string {
	var ids []string
	for _, b := range r.Blocks {
		for _, c := range b.cells {
			ids = append(ids, c.ChartID)
		}
	}
	return ids
}

// AssemblerOptions configure an Assembler
type AssemblerOptions struct {
	Solver          layout.Options
	Breakpoints     layout.Breakpoints
	SanitizeContent bool
}

// DefaultAssemblerOptions returns the stock solver constants and
// breakpoints with content sanitizing on
func DefaultAssemblerOptions() AssemblerOptions {
	return AssemblerOptions{
		Solver:          layout.DefaultOptions(),
		Breakpoints:     layout.DefaultBreakpoints(),
		SanitizeContent: true,
	}
}

// Assembler runs calculation, validity filtering, column composition and
// height solving for a report. It keeps no per-report state.
type Assembler struct {
	solver      *layout.Solver
	breakpoints layout.Breakpoints
	policy      *bluemonday.Policy
	logger      *logrus.Logger
}

// NewAssembler creates an assembler
func NewAssembler(opts AssemblerOptions, logger *logrus.Logger) *Assembler {
	a := &Assembler{
		solver:      layout.NewSolver(opts.Solver),
		breakpoints: opts.Breakpoints,
		logger:      logger,
	}
	if opts.SanitizeContent {
		a.policy = bluemonday.UGCPolicy()
	}
	return a
}

// Solver returns the height solver the assembler lays rows out with
func (a *Assembler) Solver() *layout.Solver {
	return a.solver
}

// Breakpoints returns the responsive column thresholds
func (a *Assembler) Breakpoints() layout.Breakpoints {
	return a.breakpoints
}

// CalculateChart calculates one configuration and sanitizes any markup in
// text and table payloads
func (a *Assembler) CalculateChart(cfg charts.ChartConfiguration, stats formula.Stats) charts.ChartResult {
	result := charts.Calculate(charts.Normalize(cfg), stats)
	if a.policy == nil || (cfg.Type != charts.TypeText && cfg.Type != charts.TypeTable) {
		return result
	}

	body, ok := result.Body.(charts.KPIBody)
	if !ok {
		return result
	}
	s, ok := body.Value.AsString()
	if !ok || !strings.ContainsRune(s, '<') {
		return result
	}

	clean := a.policy.Sanitize(s)
	result.Body = charts.KPIBody{Value: formula.String(clean), Formatted: clean}
	return result
}

// Calculate computes a result for every chart the layout references
func (a *Assembler) Calculate(rl models.ReportLayout, configs []charts.ChartConfiguration, stats formula.Stats) map[string]charts.ChartResult {
	return a.CalculateWith(rl, configs, func(cfg charts.ChartConfiguration) charts.ChartResult {
		return a.CalculateChart(cfg, stats)
	})
}

// CalculateWith runs calc for every chart the layout references.
// References without a configuration become error results.
func (a *Assembler) CalculateWith(rl models.ReportLayout, configs []charts.ChartConfiguration, calc func(charts.ChartConfiguration) charts.ChartResult) map[string]charts.ChartResult {
	byID := make(map[string]charts.ChartConfiguration, len(configs))
	for _, cfg := range configs {
		byID[cfg.ChartID] = cfg
	}

	ids := rl.ChartIDs()
	results := make(map[string]charts.ChartResult, len(ids))
	for _, id := range ids {
		cfg, ok := byID[id]
		if !ok {
			if a.logger != nil {
				a.logger.WithFields(logrus.Fields{
					"project_id": rl.ProjectID,
					"chart_id":   id,
				}).Warn("Layout references a chart configuration that does not exist")
			}
			results[id] = charts.MissingResult(id)
			continue
		}
		results[id] = calc(cfg)
	}
	return results
}

// Assemble calculates and lays out a report at the given row width
func (a *Assembler) Assemble(rl models.ReportLayout, configs []charts.ChartConfiguration, stats formula.Stats, widthPx float64) *Report {
	return a.Compose(rl, a.Calculate(rl, configs, stats), widthPx)
}

// Compose lays out already calculated results. Each result's validity is
// decided once, and that one decision drives both what is rendered and
// what is sized.
func (a *Assembler) Compose(rl models.ReportLayout, results map[string]charts.ChartResult, widthPx float64) *Report {
	valid, excluded, missing := partitionValid(rl.ChartIDs(), results)

	report := &Report{
		ProjectID:   rl.ProjectID,
		Results:     results,
		Excluded:    excluded,
		Missing:     missing,
		GeneratedAt: time.Now().UTC(),
		grid:        rl.GridSettings.Normalize(),
	}

	for _, block := range rl.VisibleBlocks() {
		var cells []layout.CellConfiguration
		for _, bc := range block.SortedCharts() {
			if !valid[bc.ChartID] {
				continue
			}
			cell := layout.CellFromResult(results[bc.ChartID])
			if bc.Width > 0 {
				cell.CellWidth = bc.Width
			}
			cells = append(cells, cell)
		}
		if len(cells) == 0 {
			continue
		}
		report.Blocks = append(report.Blocks, RenderedBlock{
			ID:    block.ID,
			Title: block.Title,
			Order: block.Order,
			cells: cells,
		})
	}

	a.solve(report, widthPx)
	return report
}

// Relayout re-solves a report's rows at a new width without recalculating
// any chart
func (a *Assembler) Relayout(report *Report, widthPx float64) *Report {
	out := *report
	out.Blocks = make([]RenderedBlock, len(report.Blocks))
	copy(out.Blocks, report.Blocks)
	a.solve(&out, widthPx)
	return &out
}

func (a *Assembler) solve(report *Report, widthPx float64) {
	widthPx = layout.UsableWidth(widthPx)
	report.WidthPx = widthPx
	report.GridUnits = a.GridUnits(report.grid, widthPx)

	for i := range report.Blocks {
		block := &report.Blocks[i]
		packed := layout.PackRows(block.cells, report.GridUnits)
		block.Rows = make([]RenderedRow, 0, len(packed))
		for _, cells := range packed {
			block.Rows = append(block.Rows, RenderedRow{
				RowLayout: a.solver.SolveRow(cells, widthPx),
				Policy:    layout.ResponsivePolicy(widthPx, layout.Widths(cells), a.breakpoints),
			})
		}
	}
}

// GridUnits picks the grid's unit count for a viewport width
func (a *Assembler) GridUnits(grid models.GridSettings, widthPx float64) int {
	grid = grid.Normalize()
	switch {
	case widthPx >= a.breakpoints.TabletPx:
		return grid.DesktopUnits
	case widthPx >= a.breakpoints.MobilePx:
		return grid.TabletUnits
	default:
		return grid.MobileUnits
	}
}

// partitionValid calls HasValidData exactly once per referenced chart.
// Missing configurations are reported apart from charts with no data.
func partitionValid(ids []string, results map[string]charts.ChartResult) (map[string]bool, []string, []string) {
	valid := make(map[string]bool, len(ids))
	excluded := []string{}
	missing := []string{}

	for _, id := range ids {
		r, ok := results[id]
		switch {
		case !ok || r.Error:
			missing = append(missing, id)
		case charts.HasValidData(r):
			valid[id] = true
		default:
			excluded = append(excluded, id)
		}
	}

	sort.Strings(excluded)
	sort.Strings(missing)
	return valid, excluded, missing
}
