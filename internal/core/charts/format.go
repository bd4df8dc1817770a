package charts

import (
	"math"
	"strconv"
	"strings"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

const defaultDecimals = 2

// DecimalPlaces returns how many fraction digits a number is rendered with.
// Rounded wins when present; the legacy Decimals count only applies to
// configurations that never set Rounded.
func (f Formatting) DecimalPlaces() int {
	if f.Rounded != nil {
		if *f.Rounded {
			return 0
		}
		return defaultDecimals
	}
	if f.Decimals != nil && *f.Decimals >= 0 {
		return *f.Decimals
	}
	return defaultDecimals
}

// FormatValue renders a resolved value for display. NA and strings pass
// through untouched; numbers get the decimal rule and then prefix/suffix.
func FormatValue(v formula.Value, f Formatting) string {
	n, ok := v.AsFloat()
	if !ok {
		return v.String()
	}
	return f.Prefix + formatNumber(n, f.DecimalPlaces()) + f.Suffix
}

func formatNumber(n float64, decimals int) string {
	s := strconv.FormatFloat(roundTo(n, decimals), 'f', decimals, 64)
	if strings.HasPrefix(s, "-") && strings.Trim(s, "-0.") == "" {
		s = s[1:]
	}
	return s
}

func roundTo(n float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(n*scale) / scale
}

// Percentage returns value/total*100 rounded per the formatting rule.
// NA values and non-positive totals yield NA.
func Percentage(v formula.Value, total float64, f Formatting) formula.Value {
	n, ok := v.AsFloat()
	if !ok || total <= 0 {
		return formula.NA()
	}
	return formula.Number(roundTo(n/total*100, f.DecimalPlaces()))
}
