package cultivation

import (
	"context"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/google/uuid"
)

type phaseEvent struct {
	SessionID  string    `json:"session_id"`
	Crop       string    `json:"crop"`
	PhaseIndex int       `json:"phase_index"`
	PhaseName  string    `json:"phase_name,omitempty"`
	Action     string    `json:"action,omitempty"`
	StartDate  time.Time `json:"start_date"`
}

type detectionEvent struct {
	SessionID string         `json:"session_id"`
	Crop      string         `json:"crop,omitempty"`
	Detection DetectionEntry `json:"detection"`
}

// publish is best effort: the state change is already stored, so failures
// are logged and counted only.
func (m *Manager) publish(ctx context.Context, typ domain.EventType, key string, payload any) {
	if m.events == nil {
		return
	}
	ev := domain.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Key:        key,
		OccurredAt: domain.Now(),
		Payload:    payload,
	}
	if err := m.events.Publish(ctx, ev); err != nil {
		m.metrics.EventsPublished.WithLabelValues(string(typ), "error").Inc()
		m.logger.Warn("publish event failed", "type", typ, "key", key, "error", err)
		return
	}
	m.metrics.EventsPublished.WithLabelValues(string(typ), "success").Inc()
}
