package reporter

import (
	"time"

	"plant_monitor/internal/models"
)

// Analysis is the body of POST /analysis.
type Analysis struct {
	Timestamp time.Time       `json:"timestamp"`
	Text      string          `json:"text"`
	Source    string          `json:"source"`
	Reading   *models.Reading `json:"reading,omitempty"`
}

// Alert is one element of the POST /alerts body.
type Alert struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	ReadingID string          `json:"reading_id,omitempty"`
	Metric    models.Metric   `json:"metric"`
	Value     float64         `json:"value"`
	Bound     models.Bound    `json:"bound"`
	Min       float64         `json:"min"`
	Max       float64         `json:"max"`
	Severity  models.Severity `json:"severity"`
}

func NewAnalysis(rec models.Recommendation, latest *models.Reading) Analysis {
	return Analysis{Timestamp: rec.GeneratedAt, Text: rec.Text, Source: rec.Source, Reading: latest}
}

// NewAlerts converts the active findings of a reading.
func NewAlerts(findings []models.Finding, r models.Reading) []Alert {
	out := make([]Alert, 0, len(findings))
	for _, f := range findings {
		out = append(out, Alert{
			Timestamp: r.Timestamp,
			Type:      f.Type(),
			Message:   f.Message(),
			ReadingID: r.ID,
			Metric:    f.Metric,
			Value:     f.Value,
			Bound:     f.Bound,
			Min:       f.Min,
			Max:       f.Max,
			Severity:  f.Severity,
		})
	}
	return out
}
