package models

import (
	"sort"
	"time"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

// GridSettings are the grid unit counts per viewport class
type GridSettings struct {
	DesktopUnits int `json:"desktopUnits" bson:"desktopUnits" validate:"min=1,max=12"`
	TabletUnits  int `json:"tabletUnits" bson:"tabletUnits" validate:"min=1,max=12"`
	MobileUnits  int `json:"mobileUnits" bson:"mobileUnits" validate:"min=1,max=12"`
}

// DefaultGridSettings returns the grid used when a layout omits one
func DefaultGridSettings() GridSettings {
	return GridSettings{DesktopUnits: 4, TabletUnits: 2, MobileUnits: 1}
}

// Normalize replaces unset unit counts with the defaults
func (g GridSettings) Normalize() GridSettings {
	d := DefaultGridSettings()
	if g.DesktopUnits < 1 {
		g.DesktopUnits = d.DesktopUnits
	}
	if g.TabletUnits < 1 {
		g.TabletUnits = d.TabletUnits
	}
	if g.MobileUnits < 1 {
		g.MobileUnits = d.MobileUnits
	}
	return g
}

// BlockChart places one chart in a block. Width overrides the chart's own
// width weight when positive.
type BlockChart struct {
	ChartID string `json:"chartId" bson:"chartId" validate:"required,max=128"`
	Order   int    `json:"order" bson:"order"`
	Width   int    `json:"width,omitempty" bson:"width,omitempty" validate:"min=0,max=12"`
}

// ReportBlock is a titled group of charts rendered together
type ReportBlock struct {
	ID      string       `json:"id" bson:"id" validate:"required,max=128"`
	Title   string       `json:"title" bson:"title" validate:"max=256"`
	Visible bool         `json:"visible" bson:"visible"`
	Order   int          `json:"order" bson:"order"`
	Charts  []BlockChart `json:"charts" bson:"charts" validate:"dive"`
}

// SortedCharts returns the block's charts by order, ties broken by position
func (b ReportBlock) SortedCharts() []BlockChart {
	out := make([]BlockChart, len(b.Charts))
	copy(out, b.Charts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// ReportLayout is the ordered block list of one project's report
type ReportLayout struct {
	ProjectID    string        `json:"projectId" bson:"_id"`
	Blocks       []ReportBlock `json:"blocks" bson:"blocks" validate:"dive"`
	GridSettings GridSettings  `json:"gridSettings" bson:"gridSettings"`
	UpdatedAt    time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// VisibleBlocks returns visible blocks by order, ties broken by position
func (l ReportLayout) VisibleBlocks() []ReportBlock {
	var out []ReportBlock
	for _, b := range l.Blocks {
		if b.Visible {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// ChartIDs returns every chart referenced by a visible block, in render
// order, without duplicates
func (l ReportLayout) ChartIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, b := range l.VisibleBlocks() {
		for _, c := range b.SortedCharts() {
			if !seen[c.ChartID] {
				seen[c.ChartID] = true
				ids = append(ids, c.ChartID)
			}
		}
	}
	return ids
}

// DefaultBlockID names the block of a generated layout
const DefaultBlockID = "default"

// DefaultLayout places every active configuration in one visible block, by
// configuration order then chart id. It stands in for projects that have
// not saved a layout.
func DefaultLayout(projectID string, configs []charts.ChartConfiguration) ReportLayout {
	active := make([]charts.ChartConfiguration, 0, len(configs))
	for _, c := range configs {
		if c.IsActive {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Order != active[j].Order {
			return active[i].Order < active[j].Order
		}
		return active[i].ChartID < active[j].ChartID
	})

	block := ReportBlock{ID: DefaultBlockID, Visible: true, Charts: make([]BlockChart, len(active))}
	for i, c := range active {
		block.Charts[i] = BlockChart{ChartID: c.ChartID, Order: i}
	}

	return ReportLayout{
		ProjectID:    projectID,
		Blocks:       []ReportBlock{block},
		GridSettings: DefaultGridSettings(),
	}
}

// ProjectStatistics is the statistics record of one project
type ProjectStatistics struct {
	ProjectID string        `json:"projectId" bson:"_id"`
	Stats     formula.Stats `json:"stats" bson:"stats"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}
