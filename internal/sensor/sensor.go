// Package sensor provides the sources of environmental readings: a drifting
// simulator and a hardware-backed source for a Raspberry Pi.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"plant_monitor/internal/models"
)

// Source yields one reading per call.
//
// Hardware sources may return a partial reading: the returned Reading is
// usable and err is a *SensorError with Partial() == true. Any other non-nil
// error means no reading was produced.
type Source interface {
	Read(ctx context.Context) (models.Reading, error)
	Close() error
}

// SensorError reports metrics that could not be read.
type SensorError struct {
	Metrics []models.Metric
	Err     error
	partial bool
}

func (e *SensorError) Error() string {
	names := make([]string, 0, len(e.Metrics))
	for _, m := range e.Metrics {
		names = append(names, string(m))
	}
	kind := "sensor read failed"
	if e.partial {
		kind = "partial sensor read"
	}
	if len(names) == 0 {
		return fmt.Sprintf("%s: %v", kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", kind, strings.Join(names, ", "), e.Err)
}

func (e *SensorError) Unwrap() error { return e.Err }

// Partial reports whether a usable reading accompanies this error.
func (e *SensorError) Partial() bool { return e.partial }

// PartialError marks metrics as unavailable in an otherwise usable reading.
func PartialError(metrics []models.Metric, err error) *SensorError {
	return &SensorError{Metrics: metrics, Err: err, partial: true}
}

// IsPartial reports whether err is a partial-read SensorError.
func IsPartial(err error) bool {
	var se *SensorError
	return errors.As(err, &se) && se.partial
}

// Physical sanity limits; values outside are treated as garbage.
const (
	minPlausibleTempC = -40.0
	maxPlausibleTempC = 80.0
	maxPlausibleCO2   = 10000
)

func checkClimate(tempC, humidity float64) error {
	if tempC < minPlausibleTempC || tempC > maxPlausibleTempC {
		return fmt.Errorf("implausible temperature %.1f°C", tempC)
	}
	if humidity < 0 || humidity > 100 {
		return fmt.Errorf("implausible humidity %.1f%%", humidity)
	}
	return nil
}

func checkCO2(ppm int) error {
	if ppm <= 0 || ppm > maxPlausibleCO2 {
		return fmt.Errorf("implausible co2 %d ppm", ppm)
	}
	return nil
}

func checkLight(lux float64) error {
	if lux < 0 {
		return fmt.Errorf("implausible light %.1f lux", lux)
	}
	return nil
}
