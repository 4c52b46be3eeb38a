package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func testWriter(rec *recordingWriter) *Writer {
	return &Writer{
		writer:      rec,
		eventsTopic: "cultivation-events",
		alertsTopic: "disease-risk-alerts",
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 6, 20, 9, 30, 0, 0, time.UTC)
	event := domain.Event{
		ID:         "evt-1",
		Type:       domain.EventPhaseChanged,
		Key:        "farmer-1",
		OccurredAt: now,
		Payload:    map[string]any{"phase_index": 2},
	}

	msg, err := serializeToMessage(event, "cultivation-events")
	require.NoError(t, err)

	assert.Equal(t, "cultivation-events", msg.Topic)
	assert.Equal(t, []byte("farmer-1"), msg.Key)
	assert.JSONEq(t, `{"id":"evt-1","type":"cultivation.phase_changed","occurred_at":"2024-06-20T09:30:00Z","payload":{"phase_index":2}}`, string(msg.Value))
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("cultivation.phase_changed"), msg.Headers[0].Value)
	assert.Equal(t, "occurred_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_UnencodablePayload(t *testing.T) {
	_, err := serializeToMessage(domain.Event{Type: domain.EventRiskAlert, Payload: make(chan int)}, "alerts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk.alert")
}

func TestPublish_RoutesByEventType(t *testing.T) {
	rec := &recordingWriter{}
	w := testWriter(rec)

	err := w.Publish(context.Background(),
		domain.Event{ID: "1", Type: domain.EventCultivationStarted, Key: "s1"},
		domain.Event{ID: "2", Type: domain.EventRiskAlert, Key: "Paddy"},
		domain.Event{ID: "3", Type: domain.EventDetectionLogged, Key: "s1"},
	)
	require.NoError(t, err)

	require.Len(t, rec.msgs, 3)
	assert.Equal(t, "cultivation-events", rec.msgs[0].Topic)
	assert.Equal(t, "disease-risk-alerts", rec.msgs[1].Topic)
	assert.Equal(t, []byte("Paddy"), rec.msgs[1].Key)
	assert.Equal(t, "cultivation-events", rec.msgs[2].Topic)
}

func TestPublish_EmptyIsNoop(t *testing.T) {
	rec := &recordingWriter{err: errors.New("should not be called")}
	require.NoError(t, testWriter(rec).Publish(context.Background()))
}

func TestPublish_WriteError(t *testing.T) {
	rec := &recordingWriter{err: errors.New("leader not available")}

	err := testWriter(rec).Publish(context.Background(), domain.Event{Type: domain.EventRiskAlert})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestClose(t *testing.T) {
	rec := &recordingWriter{}
	require.NoError(t, testWriter(rec).Close())
	assert.True(t, rec.closed)
}
