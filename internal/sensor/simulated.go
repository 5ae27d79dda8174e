package sensor

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"plant_monitor/internal/models"

	"github.com/google/uuid"
)

// Simulation baselines, centred inside the optimal bands.
const (
	BaseTempC     = 22.0
	BaseHumidity  = 65.0
	BaseCO2       = 450.0
	BaseLightLux  = 5000.0
	minSimCO2     = 300.0
	driftFraction = 0.2 // random-walk step as a fraction of jitter
)

// walk is one drifting metric: base + bounded drift + jitter.
type walk struct {
	base, jitter, maxDrift float64
	drift                  float64
}

func (w *walk) next(rng *rand.Rand) float64 {
	w.drift += (rng.Float64()*2 - 1) * w.jitter * driftFraction
	if w.drift > w.maxDrift {
		w.drift = w.maxDrift
	}
	if w.drift < -w.maxDrift {
		w.drift = -w.maxDrift
	}
	return w.base + w.drift + (rng.Float64()*2-1)*w.jitter
}

var errSimulatedFault = errors.New("simulated sensor fault")

// Simulated produces plausible readings without hardware.
type Simulated struct {
	mu          sync.Mutex
	rng         *rand.Rand
	failureRate float64
	now         func() time.Time

	temp, humidity, co2, light walk
}

// SimOptions tune the simulator. Zero Seed picks a random seed.
type SimOptions struct {
	Seed        uint64
	FailureRate float64 // 0..1 chance that a read fails
}

// NewSimulated returns a simulator with the default jitter bands
// (±2 °C, ±5 %, ±50 ppm, ±1000 lux).
func NewSimulated(opts SimOptions) *Simulated {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Simulated{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		failureRate: opts.FailureRate,
		now:         time.Now,
		temp:        walk{base: BaseTempC, jitter: 2, maxDrift: 2},
		humidity:    walk{base: BaseHumidity, jitter: 5, maxDrift: 4},
		co2:         walk{base: BaseCO2, jitter: 50, maxDrift: 80},
		light:       walk{base: BaseLightLux, jitter: 1000, maxDrift: 1500},
	}
}

// Read returns the next simulated reading.
func (s *Simulated) Read(ctx context.Context) (models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return models.Reading{}, &SensorError{Metrics: models.Metrics[:], Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failureRate > 0 && s.rng.Float64() < s.failureRate {
		return models.Reading{}, &SensorError{Metrics: models.Metrics[:], Err: errSimulatedFault}
	}
	return models.Reading{
		ID:          uuid.NewString(),
		Temperature: s.temp.next(s.rng),
		Humidity:    clamp(s.humidity.next(s.rng), 0, 100),
		CO2:         int(max(minSimCO2, s.co2.next(s.rng))),
		Light:       max(0, s.light.next(s.rng)),
		Timestamp:   s.now().UTC(),
	}, nil
}

// Close is a no-op.
func (s *Simulated) Close() error { return nil }

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
