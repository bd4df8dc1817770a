package charts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

// ChartType identifies how a chart configuration is calculated and drawn
type ChartType string

const (
	TypeKPI   ChartType = "kpi"
	TypePie   ChartType = "pie"
	TypeBar   ChartType = "bar"
	TypeText  ChartType = "text"
	TypeImage ChartType = "image"
	TypeTable ChartType = "table"
	TypeValue ChartType = "value"
)

// Supported aspect ratios for aspect-constrained cells
const (
	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
	AspectSquare    = "1:1"
)

// ChartConfiguration describes one report cell
type ChartConfiguration struct {
	ChartID         string     `json:"chartId" validate:"required,max=128"`
	Title           string     `json:"title" validate:"max=256"`
	Subtitle        string     `json:"subtitle,omitempty" validate:"max=256"`
	Type            ChartType  `json:"type" validate:"required,oneof=kpi pie bar text image table value"`
	Order           int        `json:"order"`
	Elements        []Element  `json:"elements" validate:"dive"`
	Formula         string     `json:"formula,omitempty" validate:"max=1024"`
	Formatting      Formatting `json:"formatting"`
	ShowTitle       bool       `json:"showTitle"`
	ShowPercentages bool       `json:"showPercentages"`
	AspectRatio     string     `json:"aspectRatio,omitempty" validate:"omitempty,oneof=16:9 9:16 1:1"`
	Width           int        `json:"width" validate:"min=0,max=12"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Element is one data point of a chart: a variable reference, a formula or
// a literal value
type Element struct {
	ID      string         `json:"id" validate:"required,max=128"`
	Label   string         `json:"label"`
	Ref     string         `json:"ref,omitempty" validate:"max=1024"`
	Literal *formula.Value `json:"literal,omitempty"`
	Color   string         `json:"color,omitempty"`
}

// UnmarshalJSON also accepts the older "formula" key in place of "ref"
func (e *Element) UnmarshalJSON(data []byte) error {
	type plain Element
	aux := struct {
		*plain
		Formula string `json:"formula"`
	}{plain: (*plain)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.Ref == "" && aux.Formula != "" {
		e.Ref = aux.Formula
	}
	return nil
}

// Formatting controls numeric rendering. Rounded takes precedence over the
// legacy Decimals field whenever it is set.
type Formatting struct {
	Rounded  *bool  `json:"rounded,omitempty"`
	Decimals *int   `json:"decimals,omitempty" validate:"omitempty,min=0,max=6"`
	Prefix   string `json:"prefix,omitempty"`
	Suffix   string `json:"suffix,omitempty"`
}

// Bool and Int are helpers for building Formatting literals
func Bool(b bool) *bool { return &b }
func Int(i int) *int    { return &i }

// Normalize fills defaults that older configurations leave out
func Normalize(cfg ChartConfiguration) ChartConfiguration {
	if cfg.Width < 1 {
		cfg.Width = 1
	}
	if cfg.Type == TypeImage && cfg.AspectRatio == "" {
		cfg.AspectRatio = AspectLandscape
	}
	return cfg
}

// References returns every statistic name the configuration depends on,
// in first-seen order
func (c ChartConfiguration) References() []string {
	seen := make(map[string]bool)
	var refs []string
	add := func(expr string) {
		for _, name := range formula.References(expr) {
			if !seen[name] {
				seen[name] = true
				refs = append(refs, name)
			}
		}
	}

	if c.Formula != "" {
		add(c.Formula)
	}
	for _, el := range c.Elements {
		if el.Literal == nil && el.Ref != "" {
			add(el.Ref)
		}
	}
	return refs
}

// DependsOn reports whether the configuration reads the given statistic
func (c ChartConfiguration) DependsOn(statKey string) bool {
	for _, name := range c.References() {
		if name == statKey {
			return true
		}
	}
	return false
}

// Fingerprint hashes everything that affects calculation. Timestamps are
// excluded so re-saving an unchanged configuration keeps its cached results.
func (c ChartConfiguration) Fingerprint() string {
	c.CreatedAt, c.UpdatedAt = time.Time{}, time.Time{}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
