package layout

import (
	"math"
	"strconv"
	"strings"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
)

// CellConfiguration is the layout projection of a valid chart result
type CellConfiguration struct {
	ChartID     string           `json:"chartId"`
	CellWidth   int              `json:"cellWidth"`
	BodyType    charts.ChartType `json:"bodyType"`
	AspectRatio string           `json:"aspectRatio,omitempty"`
	HasTitle    bool             `json:"hasTitle"`
	HasSubtitle bool             `json:"hasSubtitle"`
}

// CellFromResult projects a chart result onto the fields the solver reads
func CellFromResult(r charts.ChartResult) CellConfiguration {
	return CellConfiguration{
		ChartID:     r.ChartID,
		CellWidth:   weight(r.Width),
		BodyType:    r.Type,
		AspectRatio: r.AspectRatio,
		HasTitle:    r.ShowTitle && r.Title != "",
		HasSubtitle: r.Subtitle != "",
	}
}

// Options are the fixed constants of the height solver
type Options struct {
	CellPaddingPx         float64 `json:"cellPaddingPx" mapstructure:"cell_padding_px"`
	MinBodyHeightPx       float64 `json:"minBodyHeightPx" mapstructure:"min_body_height_px"`
	TitleReservationPx    float64 `json:"titleReservationPx" mapstructure:"title_reservation_px"`
	SubtitleReservationPx float64 `json:"subtitleReservationPx" mapstructure:"subtitle_reservation_px"`
}

// DefaultOptions returns the stock solver constants
func DefaultOptions() Options {
	return Options{
		CellPaddingPx:         0,
		MinBodyHeightPx:       120,
		TitleReservationPx:    40,
		SubtitleReservationPx: 24,
	}
}

// CellLayout is the solved geometry of one cell
type CellLayout struct {
	ChartID           string  `json:"chartId"`
	ColumnShare       float64 `json:"columnShare"`
	WidthPx           float64 `json:"widthPx"`
	BodyHeightPx      float64 `json:"bodyHeightPx"`
	AspectConstrained bool    `json:"aspectConstrained"`
}

// RowLayout is the solved geometry of one row, handed to whatever paints
// the grid
type RowLayout struct {
	ColumnShares []float64    `json:"columnShares"`
	RowHeightPx  float64      `json:"rowHeightPx"`
	BodyHeightPx float64      `json:"bodyHeightPx"`
	Cells        []CellLayout `json:"cells"`
}

// Solver negotiates one shared height for a row of heterogeneous cells.
// It holds only constants, so one Solver can serve concurrent callers.
type Solver struct {
	opts Options
}

// NewSolver creates a solver with the given constants
func NewSolver(opts Options) *Solver {
	return &Solver{opts: opts}
}

// Options returns the solver constants
func (s *Solver) Options() Options {
	return s.opts
}

// SolveHeight returns the shared body height of a row: the tallest height
// any aspect-constrained cell needs at its column width, never below the
// minimum body height.
func (s *Solver) SolveHeight(cells []CellConfiguration, rowWidthPx float64) float64 {
	rowWidthPx = UsableWidth(rowWidthPx)

	shares := ComposeColumns(Widths(cells))
	height := s.opts.MinBodyHeightPx

	for i, cell := range cells {
		if !IsAspectConstrained(cell) {
			continue
		}
		width := math.Max(rowWidthPx*shares[i]-s.opts.CellPaddingPx, 0)
		height = math.Max(height, width/AspectRatioValue(cell.AspectRatio))
	}
	return height
}

// UsableWidth maps widths that cannot be laid out (negative, NaN or
// infinite) to zero
func UsableWidth(widthPx float64) float64 {
	if math.IsNaN(widthPx) || math.IsInf(widthPx, 0) || widthPx < 0 {
		return 0
	}
	return widthPx
}

// SolveRow returns the full typed geometry of a row. The row height adds
// the tallest header reservation to the shared body height; each cell's
// body is what remains after its own reservations.
func (s *Solver) SolveRow(cells []CellConfiguration, rowWidthPx float64) RowLayout {
	rowWidthPx = UsableWidth(rowWidthPx)
	body := s.SolveHeight(cells, rowWidthPx)

	header := 0.0
	for _, cell := range cells {
		header = math.Max(header, s.reservation(cell))
	}
	rowHeight := body + header

	shares := ComposeColumns(Widths(cells))
	layout := RowLayout{
		ColumnShares: shares,
		RowHeightPx:  rowHeight,
		BodyHeightPx: body,
		Cells:        make([]CellLayout, len(cells)),
	}
	if len(cells) == 0 {
		layout.Cells = []CellLayout{}
	}

	for i, cell := range cells {
		layout.Cells[i] = CellLayout{
			ChartID:           cell.ChartID,
			ColumnShare:       shares[i],
			WidthPx:           math.Max(rowWidthPx*shares[i]-s.opts.CellPaddingPx, 0),
			BodyHeightPx:      rowHeight - s.reservation(cell),
			AspectConstrained: IsAspectConstrained(cell),
		}
	}
	return layout
}

func (s *Solver) reservation(cell CellConfiguration) float64 {
	r := 0.0
	if cell.HasTitle {
		r += s.opts.TitleReservationPx
	}
	if cell.HasSubtitle {
		r += s.opts.SubtitleReservationPx
	}
	return r
}

// SolveHeight solves with the default constants
func SolveHeight(cells []CellConfiguration, rowWidthPx float64) float64 {
	return NewSolver(DefaultOptions()).SolveHeight(cells, rowWidthPx)
}

// IsAspectConstrained reports whether a cell's height follows its width.
// Only image, text, table and bar bodies honor an aspect ratio.
func IsAspectConstrained(cell CellConfiguration) bool {
	if strings.TrimSpace(cell.AspectRatio) == "" {
		return false
	}
	switch cell.BodyType {
	case charts.TypeImage, charts.TypeText, charts.TypeTable, charts.TypeBar:
		return true
	default:
		return false
	}
}

// AspectRatioValue converts "W:H" (or "W/H") into width/height. Anything
// malformed counts as square.
func AspectRatioValue(ratio string) float64 {
	sep := ":"
	if !strings.Contains(ratio, sep) {
		sep = "/"
	}
	parts := strings.Split(strings.TrimSpace(ratio), sep)
	if len(parts) != 2 {
		return 1
	}

	w, errW := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errW != nil || errH != nil || !(w > 0) || !(h > 0) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return 1
	}
	return w / h
}
