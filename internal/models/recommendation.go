package models

import "time"

// Advice origins.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Recommendation is the advisory text surfaced to the operator.
type Recommendation struct {
	Text        string    `json:"text"`
	Source      string    `json:"source"` // ai | fallback
	GeneratedAt time.Time `json:"generated_at"`
	// FallbackReason is set when the AI call was attempted and failed.
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// Failed reports whether this recommendation replaces a failed AI call.
func (r Recommendation) Failed() bool { return r.FallbackReason != "" }
