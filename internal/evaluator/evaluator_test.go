package evaluator

import (
	"testing"
	"time"

	"plant_monitor/internal/models"
)

func optimalReading() models.Reading {
	return models.Reading{
		Temperature: 22,
		Humidity:    60,
		CO2:         500,
		Light:       5000,
		Timestamp:   time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestBandsAreWellFormed(t *testing.T) {
	t.Parallel()
	for _, m := range models.Metrics {
		b, ok := Optimal(m)
		if !ok {
			t.Fatalf("no band for %s", m)
		}
		if !(b.Min < b.Max) {
			t.Errorf("%s: min %v must be < max %v", m, b.Min, b.Max)
		}
	}
}

func TestRangesReturnsCopy(t *testing.T) {
	t.Parallel()
	r := Ranges()
	r[models.MetricTemperature] = Band{Min: 0, Max: 1}
	b, _ := Optimal(models.MetricTemperature)
	if b.Min != 18 || b.Max != 26 {
		t.Fatalf("table mutated through Ranges(): %+v", b)
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name   string
		mutate func(r *models.Reading)
		want   []models.Finding
	}

	cases := []testCase{
		{
			name:   "all inside band",
			mutate: func(r *models.Reading) {},
		},
		{
			name: "every metric exactly at a bound",
			mutate: func(r *models.Reading) {
				r.Temperature, r.Humidity, r.CO2, r.Light = 18, 70, 800, 2000
			},
		},
		{
			name: "other bounds",
			mutate: func(r *models.Reading) {
				r.Temperature, r.Humidity, r.CO2, r.Light = 26, 50, 400, 10000
			},
		},
		{
			name:   "temperature high",
			mutate: func(r *models.Reading) { r.Temperature = 30 },
			want: []models.Finding{
				{Metric: models.MetricTemperature, Value: 30, Bound: models.BoundHigh, Min: 18, Max: 26, Severity: models.SeverityModerate},
			},
		},
		{
			name:   "humidity barely low is mild",
			mutate: func(r *models.Reading) { r.Humidity = 49 },
			want: []models.Finding{
				{Metric: models.MetricHumidity, Value: 49, Bound: models.BoundLow, Min: 50, Max: 70, Severity: models.SeverityMild},
			},
		},
		{
			name: "all out of range keep declaration order",
			mutate: func(r *models.Reading) {
				r.Temperature, r.Humidity, r.CO2, r.Light = 35, 20, 1200, 500
			},
			want: []models.Finding{
				{Metric: models.MetricTemperature, Value: 35, Bound: models.BoundHigh, Min: 18, Max: 26, Severity: models.SeverityCritical},
				{Metric: models.MetricHumidity, Value: 20, Bound: models.BoundLow, Min: 50, Max: 70, Severity: models.SeverityCritical},
				{Metric: models.MetricCO2, Value: 1200, Bound: models.BoundHigh, Min: 400, Max: 800, Severity: models.SeverityCritical},
				{Metric: models.MetricLight, Value: 500, Bound: models.BoundLow, Min: 2000, Max: 10000, Severity: models.SeverityModerate},
			},
		},
		{
			name: "unavailable metrics are skipped",
			mutate: func(r *models.Reading) {
				r.Temperature, r.CO2 = 0, 0
				r.Unavailable = models.NewMetricSet(models.MetricTemperature, models.MetricCO2)
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := optimalReading()
			tc.mutate(&r)
			got := Evaluate(r)
			if len(got) != len(tc.want) {
				t.Fatalf("want %d findings, got %d: %+v", len(tc.want), len(got), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("finding %d: want %+v, got %+v", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestEvaluate_OneFindingPerViolatedMetric(t *testing.T) {
	t.Parallel()
	for _, m := range models.Metrics {
		b, _ := Optimal(m)
		for _, side := range []models.Bound{models.BoundLow, models.BoundHigh} {
			r := optimalReading()
			v := b.Max + 1
			if side == models.BoundLow {
				v = b.Min - 1
			}
			switch m {
			case models.MetricTemperature:
				r.Temperature = v
			case models.MetricHumidity:
				r.Humidity = v
			case models.MetricCO2:
				r.CO2 = int(v)
			case models.MetricLight:
				r.Light = v
			}
			got := Evaluate(r)
			if len(got) != 1 {
				t.Fatalf("%s %s: want 1 finding, got %d", m, side, len(got))
			}
			if got[0].Metric != m || got[0].Bound != side {
				t.Errorf("%s %s: got %+v", m, side, got[0])
			}
		}
	}
}

func TestIndicator(t *testing.T) {
	t.Parallel()
	if got := Indicator(models.MetricTemperature, 18); got != "[OK]" {
		t.Errorf("at bound: got %s", got)
	}
	if got := Indicator(models.MetricTemperature, 17.9); got != "[LOW]" {
		t.Errorf("below: got %s", got)
	}
	if got := Indicator(models.MetricLight, 10001); got != "[HIGH]" {
		t.Errorf("above: got %s", got)
	}
}
