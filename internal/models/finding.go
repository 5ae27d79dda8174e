package models

import "fmt"

// Bound is the side of the optimal band that was violated.
type Bound string

const (
	BoundLow  Bound = "low"
	BoundHigh Bound = "high"
)

// Severity grades how far a value sits outside its band.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

// Rank orders severities, higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Finding is a single metric outside its optimal band.
type Finding struct {
	Metric   Metric   `json:"metric"`
	Value    float64  `json:"value"`
	Bound    Bound    `json:"bound"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Severity Severity `json:"severity"`
}

// Type is the alert type used by the push API, e.g. "temperature_high".
func (f Finding) Type() string { return string(f.Metric) + "_" + string(f.Bound) }

// Message is a short operator-facing description.
func (f Finding) Message() string {
	side := "above"
	limit := f.Max
	if f.Bound == BoundLow {
		side = "below"
		limit = f.Min
	}
	return fmt.Sprintf("%s %g is %s optimal range (%g-%g), limit %g",
		f.Metric, f.Value, side, f.Min, f.Max, limit)
}
