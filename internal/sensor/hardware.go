package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plant_monitor/internal/models"

	"github.com/google/uuid"
)

// ClimateReader reads temperature (°C) and relative humidity (%).
type ClimateReader interface {
	ReadClimate(ctx context.Context) (tempC, humidity float64, err error)
}

// CO2Reader reads carbon dioxide concentration in ppm.
type CO2Reader interface {
	ReadCO2(ctx context.Context) (int, error)
}

// LightReader reads illuminance in lux.
type LightReader interface {
	ReadLight(ctx context.Context) (float64, error)
}

// Hardware combines three independent sensors into one Source.
//
// A failing sub-read marks its metrics unavailable and yields a partial
// reading; only when every sub-read fails does Read return no reading.
type Hardware struct {
	climate ClimateReader
	co2     CO2Reader
	light   LightReader
	closers []func() error
	now     func() time.Time
}

// NewHardware wires the three readers. Readers implementing io.Closer are
// closed by Close.
func NewHardware(climate ClimateReader, co2 CO2Reader, light LightReader) *Hardware {
	h := &Hardware{climate: climate, co2: co2, light: light, now: time.Now}
	for _, r := range []any{climate, co2, light} {
		if c, ok := r.(interface{ Close() error }); ok {
			h.closers = append(h.closers, c.Close)
		}
	}
	return h
}

// Read performs the three sub-reads in turn.
func (h *Hardware) Read(ctx context.Context) (models.Reading, error) {
	r := models.Reading{ID: uuid.NewString(), Timestamp: h.now().UTC()}
	var (
		failed models.MetricSet
		errs   []error
	)

	if t, hum, err := h.climate.ReadClimate(ctx); err == nil && checkClimate(t, hum) == nil {
		r.Temperature, r.Humidity = t, hum
	} else {
		failed = failed.With(models.MetricTemperature).With(models.MetricHumidity)
		errs = append(errs, fmt.Errorf("climate: %w", orCheck(err, func() error { return checkClimate(t, hum) })))
	}

	if ppm, err := h.co2.ReadCO2(ctx); err == nil && checkCO2(ppm) == nil {
		r.CO2 = ppm
	} else {
		failed = failed.With(models.MetricCO2)
		errs = append(errs, fmt.Errorf("co2: %w", orCheck(err, func() error { return checkCO2(ppm) })))
	}

	if lux, err := h.light.ReadLight(ctx); err == nil && checkLight(lux) == nil {
		r.Light = lux
	} else {
		failed = failed.With(models.MetricLight)
		errs = append(errs, fmt.Errorf("light: %w", orCheck(err, func() error { return checkLight(lux) })))
	}

	if failed == 0 {
		return r, nil
	}
	err := errors.Join(errs...)
	if len(failed.List()) == len(models.Metrics) {
		return models.Reading{}, &SensorError{Metrics: failed.List(), Err: err}
	}
	r.Unavailable = failed
	return r, PartialError(failed.List(), err)
}

func orCheck(err error, check func() error) error {
	if err != nil {
		return err
	}
	return check()
}

// Close releases every underlying device.
func (h *Hardware) Close() error {
	var errs []error
	for _, c := range h.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
