// Package kafka publishes enriched events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/berlin-events-service/internal/config"
	"github.com/couchcryptid/berlin-events-service/internal/domain"
)

// Writer produces enriched events to the configured topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
	clock  clockwork.Clock
}

// NewWriter creates a Kafka producer for cfg.KafkaTopic.
func NewWriter(cfg *config.Config, logger *slog.Logger, clock clockwork.Clock) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, clock: clock}
}

// LoadBatch publishes events in a single WriteMessages call. Events are keyed
// by ID so updates of one event land on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	processedAt := w.clock.Now()
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i], processedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("events published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(event domain.Event, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event %s: %w", event.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "provider_id", Value: []byte(event.ProviderID)},
			{Key: "processed_at", Value: []byte(processedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
