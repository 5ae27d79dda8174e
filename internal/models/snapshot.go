package models

import "time"

// Status is the monitor loop state.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusDegraded Status = "DEGRADED"
	StatusStopped  Status = "STOPPED"
)

// Snapshot is the read-only view handed to the display layer.
// A published snapshot is never modified; the loop builds a new one per change.
type Snapshot struct {
	Status           Status          `json:"status"`
	Reading          *Reading        `json:"reading,omitempty"`
	Findings         []Finding       `json:"findings"`
	Recommendation   *Recommendation `json:"recommendation,omitempty"`
	Errors           []string        `json:"errors,omitempty"`
	Readings         uint64          `json:"readings"`
	SensorErrors     uint64          `json:"sensor_errors"`
	AdvisorFailures  uint64          `json:"advisor_failures"`
	ReporterFailures uint64          `json:"reporter_failures"`
	StartedAt        time.Time       `json:"started_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
