// Package evaluator checks readings against the fixed optimal bands for avocado growth.
package evaluator

import "plant_monitor/internal/models"

// Band is an inclusive optimal range.
type Band struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit"`
}

// Contains reports whether v is inside the band; bounds count as optimal.
func (b Band) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// Severity thresholds as a fraction of band width.
const (
	mildRatio     = 0.1
	moderateRatio = 0.5
)

// optimal is indexed like models.Metrics. Not exported: callers get copies.
var optimal = [len(models.Metrics)]Band{
	{Min: 18, Max: 26, Unit: "°C"},
	{Min: 50, Max: 70, Unit: "%"},
	{Min: 400, Max: 800, Unit: "ppm"},
	{Min: 2000, Max: 10000, Unit: "lux"},
}

// Optimal returns the band for m.
func Optimal(m models.Metric) (Band, bool) {
	for i, x := range models.Metrics {
		if x == m {
			return optimal[i], true
		}
	}
	return Band{}, false
}

// Ranges returns a copy of the whole table keyed by metric.
func Ranges() map[models.Metric]Band {
	out := make(map[models.Metric]Band, len(optimal))
	for i, m := range models.Metrics {
		out[m] = optimal[i]
	}
	return out
}

// Evaluate returns one Finding per available metric outside its band,
// in metric declaration order. It never fails.
func Evaluate(r models.Reading) []models.Finding {
	var out []models.Finding
	for i, m := range models.Metrics {
		v, ok := r.Value(m)
		if !ok {
			continue
		}
		b := optimal[i]
		if b.Contains(v) {
			continue
		}
		f := models.Finding{Metric: m, Value: v, Min: b.Min, Max: b.Max}
		dist := v - b.Max
		f.Bound = models.BoundHigh
		if v < b.Min {
			f.Bound = models.BoundLow
			dist = b.Min - v
		}
		f.Severity = severity(dist / (b.Max - b.Min))
		out = append(out, f)
	}
	return out
}

func severity(ratio float64) models.Severity {
	switch {
	case ratio <= mildRatio:
		return models.SeverityMild
	case ratio <= moderateRatio:
		return models.SeverityModerate
	default:
		return models.SeverityCritical
	}
}

// Indicator renders the dashboard status tag for a value.
func Indicator(m models.Metric, v float64) string {
	b, ok := Optimal(m)
	switch {
	case !ok:
		return "[?]"
	case v < b.Min:
		return "[LOW]"
	case v > b.Max:
		return "[HIGH]"
	default:
		return "[OK]"
	}
}
