package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/config"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes domain events to Kafka. Risk alerts go to the alerts
// topic; every other event goes to the events topic.
// It implements domain.EventPublisher.
type Writer struct {
	writer      messageWriter
	eventsTopic string
	alertsTopic string
	logger      *slog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter creates a Kafka producer for the configured topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{
		writer:      w,
		eventsTopic: cfg.KafkaEventsTopic,
		alertsTopic: cfg.KafkaAlertsTopic,
		logger:      logger,
	}
}

// Publish serializes events and writes them in a single WriteMessages call.
// Messages are keyed by Event.Key so one session or crop stays ordered within
// a partition.
func (w *Writer) Publish(ctx context.Context, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i], w.topicFor(events[i].Type))
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d events: %w", len(msgs), err)
	}
	w.logger.Debug("events published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) topicFor(t domain.EventType) string {
	if t == domain.EventRiskAlert {
		return w.alertsTopic
	}
	return w.eventsTopic
}

// serializeToMessage marshals an Event into a Kafka message for topic.
func serializeToMessage(event domain.Event, topic string) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s event: %w", event.Type, err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(event.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "occurred_at", Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}
