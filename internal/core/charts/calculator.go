package charts

import (
	"strconv"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

// Calculate turns one configuration and a statistics snapshot into a
// ChartResult. It never fails: missing or malformed data becomes NA and is
// later dropped by HasValidData.
func Calculate(cfg ChartConfiguration, stats formula.Stats) ChartResult {
	result := ChartResult{
		ChartID:         cfg.ChartID,
		Type:            cfg.Type,
		Title:           cfg.Title,
		Subtitle:        cfg.Subtitle,
		ShowTitle:       cfg.ShowTitle,
		ShowPercentages: cfg.ShowPercentages,
		Formatting:      cfg.Formatting,
		AspectRatio:     cfg.AspectRatio,
		Width:           cfg.Width,
	}
	if result.Width < 1 {
		result.Width = 1
	}

	switch cfg.Type {
	case TypeKPI:
		result.Body = calculateKPI(cfg, stats)
	case TypePie, TypeBar:
		result.Body = calculateSeries(cfg, stats)
	case TypeText:
		result.Body = calculateContent(cfg, stats, true)
	case TypeImage, TypeTable:
		result.Body = calculateContent(cfg, stats, false)
	case TypeValue:
		result.Body = CompositeBody{
			KPI:    calculateKPI(cfg, stats),
			Series: calculateSeries(cfg, stats),
		}
	default:
		// Unknown types carry an empty KPI body, which is never valid
		result.Body = KPIBody{Value: formula.NA(), Formatted: formula.NAText}
	}

	return result
}

// CalculateAll calculates every configuration, keyed by chart id
func CalculateAll(cfgs []ChartConfiguration, stats formula.Stats) map[string]ChartResult {
	results := make(map[string]ChartResult, len(cfgs))
	for _, cfg := range cfgs {
		results[cfg.ChartID] = Calculate(cfg, stats)
	}
	return results
}

func resolveElement(el Element, stats formula.Stats) formula.Value {
	if el.Literal != nil {
		return *el.Literal
	}
	return formula.Resolve(el.Ref, stats)
}

func calculateKPI(cfg ChartConfiguration, stats formula.Stats) KPIBody {
	var value formula.Value
	switch {
	case cfg.Formula != "":
		value = formula.Resolve(cfg.Formula, stats)
	case len(cfg.Elements) > 0:
		value = resolveElement(cfg.Elements[0], stats)
	default:
		value = formula.NA()
	}
	return KPIBody{Value: value, Formatted: FormatValue(value, cfg.Formatting)}
}

func calculateSeries(cfg ChartConfiguration, stats formula.Stats) SeriesBody {
	elements := make([]ResultElement, 0, len(cfg.Elements))
	total := 0.0

	for _, el := range cfg.Elements {
		value := resolveElement(el, stats).Coerce()
		if n, ok := value.AsFloat(); ok {
			total += n
		}
		elements = append(elements, ResultElement{
			ID:        el.ID,
			Label:     el.Label,
			Color:     el.Color,
			Value:     value,
			Formatted: FormatValue(value, cfg.Formatting),
		})
	}

	for i := range elements {
		elements[i].Percentage = Percentage(elements[i].Value, total, cfg.Formatting)
	}

	return SeriesBody{Elements: elements, Total: total}
}

// calculateContent resolves the single string payload of text, image and
// table charts. Text accepts numbers in their plain decimal form; image and
// table sources must be strings.
func calculateContent(cfg ChartConfiguration, stats formula.Stats, acceptNumbers bool) KPIBody {
	value := formula.NA()
	if len(cfg.Elements) > 0 {
		value = resolveElement(cfg.Elements[0], stats)
	} else if cfg.Formula != "" {
		value = formula.Resolve(cfg.Formula, stats)
	}

	if n, ok := value.AsFloat(); ok {
		if acceptNumbers {
			value = formula.String(strconv.FormatFloat(n, 'f', -1, 64))
		} else {
			value = formula.NA()
		}
	}

	return KPIBody{Value: value, Formatted: value.String()}
}
