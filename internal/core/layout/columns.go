package layout

import (
	"math"
)

// ComposeColumns turns width weights into proportional column shares.
// An empty row is one full-width column.
func ComposeColumns(widths []int) []float64 {
	if len(widths) == 0 {
		return []float64{1.0}
	}

	total := 0
	for _, w := range widths {
		total += weight(w)
	}

	shares := make([]float64, len(widths))
	for i, w := range widths {
		shares[i] = float64(weight(w)) / float64(total)
	}
	return shares
}

func weight(w int) int {
	if w < 1 {
		return 1
	}
	return w
}

// Widths extracts the width weights of a row of cells
func Widths(cells []CellConfiguration) []int {
	widths := make([]int, len(cells))
	for i, c := range cells {
		widths[i] = c.CellWidth
	}
	return widths
}

// Policy modes
const (
	ModeProportional = "proportional"
	ModeWrap         = "wrap"
	ModeStack        = "stack"
)

// Breakpoints parameterize the responsive column policy
type Breakpoints struct {
	TabletPx  float64 `json:"tabletPx" mapstructure:"tablet_px"`
	MobilePx  float64 `json:"mobilePx" mapstructure:"mobile_px"`
	MinCellPx float64 `json:"minCellPx" mapstructure:"min_cell_px"`
}

// DefaultBreakpoints returns the stock viewport thresholds
func DefaultBreakpoints() Breakpoints {
	return Breakpoints{TabletPx: 1024, MobilePx: 640, MinCellPx: 280}
}

// ColumnPolicy tells the renderer how a row's cells flow at a viewport width
type ColumnPolicy struct {
	Mode    string    `json:"mode"`
	Columns int       `json:"columns"`
	Shares  []float64 `json:"shares"`
}

// ResponsivePolicy picks proportional columns on wide viewports, a wrapping
// grid of equal columns at least MinCellPx wide between the breakpoints, and
// a single stacked column below MobilePx.
func ResponsivePolicy(viewportPx float64, widths []int, bp Breakpoints) ColumnPolicy {
	if viewportPx >= bp.TabletPx {
		return ColumnPolicy{Mode: ModeProportional, Columns: max(len(widths), 1), Shares: ComposeColumns(widths)}
	}

	if viewportPx < bp.MobilePx || len(widths) <= 1 {
		return ColumnPolicy{Mode: ModeStack, Columns: 1, Shares: []float64{1.0}}
	}

	columns := 1
	if bp.MinCellPx > 0 {
		columns = int(math.Floor(viewportPx / bp.MinCellPx))
	}
	columns = min(max(columns, 1), len(widths))
	if columns == 1 {
		return ColumnPolicy{Mode: ModeStack, Columns: 1, Shares: []float64{1.0}}
	}

	shares := make([]float64, columns)
	for i := range shares {
		shares[i] = 1.0 / float64(columns)
	}
	return ColumnPolicy{Mode: ModeWrap, Columns: columns, Shares: shares}
}

// PackRows splits a block's cells into rows whose width weights fit in the
// grid's unit count, keeping the original order. A cell wider than the grid
// is clamped to the full row.
func PackRows(cells []CellConfiguration, units int) [][]CellConfiguration {
	if units < 1 {
		units = 1
	}

	var rows [][]CellConfiguration
	var current []CellConfiguration
	used := 0

	for _, cell := range cells {
		cell.CellWidth = min(weight(cell.CellWidth), units)
		if used+cell.CellWidth > units && len(current) > 0 {
			rows = append(rows, current)
			current, used = nil, 0
		}
		current = append(current, cell)
		used += cell.CellWidth
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	return rows
}
