package advisor

import (
	"sort"
	"strings"
	"time"

	"plant_monitor/internal/models"
)

const (
	maxFallbackIssues = 2
	issueSeparator    = " | "

	msgOptimal = "All conditions optimal! Your avocado plant is in a great environment."
	msgWaiting = "Waiting for sensor data... recommendations follow the first successful reading."
)

type category struct {
	metric models.Metric
	bound  models.Bound
}

// advice covers every category the evaluator can emit.
var advice = map[category]string{
	{models.MetricTemperature, models.BoundLow}:  "Temperature too low - consider warming the area",
	{models.MetricTemperature, models.BoundHigh}: "Temperature too high - improve ventilation or move out of direct sun",
	{models.MetricHumidity, models.BoundLow}:     "Humidity too low - mist leaves or use humidifier",
	{models.MetricHumidity, models.BoundHigh}:    "Humidity too high - improve air circulation",
	{models.MetricCO2, models.BoundLow}:          "CO2 below normal - ensure adequate ventilation",
	{models.MetricCO2, models.BoundHigh}:         "CO2 elevated - increase fresh air exchange",
	{models.MetricLight, models.BoundLow}:        "Light insufficient - move closer to window or add grow light",
	{models.MetricLight, models.BoundHigh}:       "Light too intense - add shade or move plant",
}

// Fallback builds a rule-based recommendation from the findings alone.
// The two most severe issues are reported; ties keep metric order.
func Fallback(recent []models.Reading, findings []models.Finding, now time.Time) models.Recommendation {
	rec := models.Recommendation{Source: models.SourceFallback, GeneratedAt: now.UTC()}
	switch {
	case len(findings) > 0:
		rec.Text = issues(findings)
	case len(recent) == 0:
		rec.Text = msgWaiting
	default:
		rec.Text = msgOptimal
	}
	return rec
}

func issues(findings []models.Finding) string {
	ordered := append([]models.Finding(nil), findings...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Severity.Rank() > ordered[j].Severity.Rank()
	})
	var parts []string
	for _, f := range ordered {
		text, ok := advice[category{f.Metric, f.Bound}]
		if !ok {
			text = f.Message()
		}
		parts = append(parts, text)
		if len(parts) == maxFallbackIssues {
			break
		}
	}
	return strings.Join(parts, issueSeparator)
}
