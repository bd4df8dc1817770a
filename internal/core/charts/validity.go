package charts

import "github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"

// HasValidData decides whether a result has anything to display. It is the
// only place validity is decided; rendering and layout both filter with it.
func HasValidData(r ChartResult) bool {
	if r.Error {
		return false
	}

	switch body := r.Body.(type) {
	case KPIBody:
		return validKPI(r.Type, body)
	case SeriesBody:
		return validSeries(body)
	case CompositeBody:
		return validSeries(body.Series)
	default:
		return false
	}
}

func validKPI(t ChartType, body KPIBody) bool {
	if body.Value.IsNA() {
		return false
	}
	s, isString := body.Value.AsString()
	if isString && s == formula.NAText {
		return false
	}
	if t == TypeKPI {
		// zero is a real measurement
		return true
	}
	return isString && s != ""
}

func validSeries(body SeriesBody) bool {
	if len(body.Elements) == 0 || body.Total <= 0 {
		return false
	}
	for _, el := range body.Elements {
		if n, ok := el.Value.AsFloat(); ok && n > 0 {
			return true
		}
	}
	return false
}

// FilterValid returns the ids of results that pass HasValidData, preserving
// the order of ids
func FilterValid(ids []string, results map[string]ChartResult) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if r, ok := results[id]; ok && HasValidData(r) {
			valid = append(valid, id)
		}
	}
	return valid
}
