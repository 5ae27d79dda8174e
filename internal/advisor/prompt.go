package advisor

import (
	"fmt"
	"strings"

	"plant_monitor/internal/models"
)

// SystemPrompt frames the model as an avocado grower.
const SystemPrompt = `You are an expert botanist specializing in avocado plant cultivation.
Your role is to analyze sensor readings from an avocado plant monitoring system and provide
concise, actionable recommendations to optimize plant growth.

Optimal conditions for avocado plants:
- Temperature: 18-26°C (avoid frost and extreme heat)
- Humidity: 50-70% (moderate humidity)
- CO2: 400-800 ppm (normal atmospheric to slightly elevated)
- Light: 2,000-10,000 lux (bright indirect light, avocados are understory trees)

Keep your responses brief (2-3 sentences max) and focus on the most important adjustment needed.
If all readings are optimal, provide a short encouraging status update.`

// BuildPrompt lists the most recent readings (oldest first) and active findings.
func BuildPrompt(recent []models.Reading, findings []models.Finding) string {
	if len(recent) > MaxContextReadings {
		recent = recent[len(recent)-MaxContextReadings:]
	}
	var b strings.Builder
	b.WriteString("Recent sensor readings for my avocado plant (oldest first):\n")
	if len(recent) == 0 {
		b.WriteString("- no readings available yet\n")
	}
	for _, r := range recent {
		fmt.Fprintf(&b, "- %s: Temperature %s, Humidity %s, CO2 %s, Light %s\n",
			r.Timestamp.Format("15:04:05"),
			formatMetric(r, models.MetricTemperature, "%.1f°C"),
			formatMetric(r, models.MetricHumidity, "%.1f%%"),
			formatMetric(r, models.MetricCO2, "%.0f ppm"),
			formatMetric(r, models.MetricLight, "%.0f lux"),
		)
	}
	if len(findings) > 0 {
		b.WriteString("\nOut of range right now:\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "- %s (%s)\n", f.Message(), f.Severity)
		}
	}
	b.WriteString("\nWhat adjustments should I make for optimal growth?")
	return b.String()
}

func formatMetric(r models.Reading, m models.Metric, format string) string {
	v, ok := r.Value(m)
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}
