package domain

import (
	"context"
	"time"
)

// EventType names an outbound event.
type EventType string

const (
	EventCultivationStarted EventType = "cultivation.started"
	EventPhaseChanged       EventType = "cultivation.phase_changed"
	EventDetectionLogged    EventType = "cultivation.detection_logged"
	EventRiskAlert          EventType = "risk.alert"
)

// Event is the envelope published for state changes and risk alerts. Key
// partitions the stream: session id for cultivation events, crop for alerts.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Key        string    `json:"-"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// EventPublisher delivers events to a downstream stream. Callers treat
// failures as non-fatal.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}
