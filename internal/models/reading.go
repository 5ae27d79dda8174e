package models

import (
	"encoding/json"
	"time"
)

// Metric names one environmental measurement.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
	MetricCO2         Metric = "co2"
	MetricLight       Metric = "light"
)

// Metrics lists every metric in declaration order.
var Metrics = [...]Metric{MetricTemperature, MetricHumidity, MetricCO2, MetricLight}

func (m Metric) bit() MetricSet {
	for i, x := range Metrics {
		if x == m {
			return 1 << i
		}
	}
	return 0
}

// MetricSet is a small bit set of metrics.
type MetricSet uint8

// NewMetricSet builds a set from the given metrics.
func NewMetricSet(ms ...Metric) MetricSet {
	var s MetricSet
	for _, m := range ms {
		s |= m.bit()
	}
	return s
}

func (s MetricSet) Has(m Metric) bool { return s&m.bit() != 0 }

func (s MetricSet) With(m Metric) MetricSet { return s | m.bit() }

// List returns the members in declaration order.
func (s MetricSet) List() []Metric {
	var out []Metric
	for _, m := range Metrics {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// Reading is one sampled set of environmental values.
type Reading struct {
	ID          string
	Temperature float64 // °C
	Humidity    float64 // %
	CO2         int     // ppm
	Light       float64 // lux
	Timestamp   time.Time
	// Unavailable marks metrics the source could not read; their fields are zero.
	Unavailable MetricSet
}

// Available reports whether the metric carries a real value.
func (r Reading) Available(m Metric) bool { return !r.Unavailable.Has(m) }

// Value returns the metric value and whether it is available.
func (r Reading) Value(m Metric) (float64, bool) {
	if r.Unavailable.Has(m) {
		return 0, false
	}
	switch m {
	case MetricTemperature:
		return r.Temperature, true
	case MetricHumidity:
		return r.Humidity, true
	case MetricCO2:
		return float64(r.CO2), true
	case MetricLight:
		return r.Light, true
	default:
		return 0, false
	}
}

type readingJSON struct {
	ID          string    `json:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c"`
	Humidity    *float64  `json:"humidity_percent"`
	CO2         *int      `json:"co2_ppm"`
	Light       *float64  `json:"light_lux"`
}

// MarshalJSON encodes the reading as a flat object; unavailable metrics become null.
func (r Reading) MarshalJSON() ([]byte, error) {
	out := readingJSON{ID: r.ID, Timestamp: r.Timestamp}
	if r.Available(MetricTemperature) {
		out.Temperature = &r.Temperature
	}
	if r.Available(MetricHumidity) {
		out.Humidity = &r.Humidity
	}
	if r.Available(MetricCO2) {
		out.CO2 = &r.CO2
	}
	if r.Available(MetricLight) {
		out.Light = &r.Light
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON; null metrics are marked unavailable.
func (r *Reading) UnmarshalJSON(b []byte) error {
	var in readingJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = Reading{ID: in.ID, Timestamp: in.Timestamp}
	if in.Temperature != nil {
		r.Temperature = *in.Temperature
	} else {
		r.Unavailable = r.Unavailable.With(MetricTemperature)
	}
	if in.Humidity != nil {
		r.Humidity = *in.Humidity
	} else {
		r.Unavailable = r.Unavailable.With(MetricHumidity)
	}
	if in.CO2 != nil {
		r.CO2 = *in.CO2
	} else {
		r.Unavailable = r.Unavailable.With(MetricCO2)
	}
	if in.Light != nil {
		r.Light = *in.Light
	} else {
		r.Unavailable = r.Unavailable.With(MetricLight)
	}
	return nil
}
