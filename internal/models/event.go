package models

import (
	"slices"
	"time"
)

// Event types written to the journal.
const (
	EventStart        = "START"
	EventStop         = "STOP"
	EventStatusChange = "STATUS_CHANGE"
	EventSensorError  = "SENSOR_ERROR"
	EventAdvisory     = "ADVISORY"
	EventAlert        = "ALERT"
)

// EventTypes lists every journal type in declaration order.
var EventTypes = []string{EventStart, EventStop, EventStatusChange, EventSensorError, EventAdvisory, EventAlert}

func IsEventType(s string) bool { return slices.Contains(EventTypes, s) }

// Event is a single journal entry.
type Event struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | STOP | STATUS_CHANGE | SENSOR_ERROR | ADVISORY | ALERT
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
