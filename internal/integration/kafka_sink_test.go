//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/berlin-events-service/internal/adapter/kafka"
	"github.com/couchcryptid/berlin-events-service/internal/config"
	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/observability"
	"github.com/couchcryptid/berlin-events-service/internal/pipeline"
	"github.com/couchcryptid/berlin-events-service/internal/provider"
	"github.com/couchcryptid/berlin-events-service/internal/store"
)

const testTopic = "test-enriched-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("berlin-events-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedMessage struct {
	Event   domain.Event
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	return publishedMessage{Event: event, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestWriterPublishesEvents round-trips one enriched event through Kafka.
func TestWriterPublishesEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger(), clockwork.NewRealClock())
	t.Cleanup(func() { _ = writer.Close() })

	lat, lon := 52.5306, 13.4491
	event := domain.Event{
		ID:         "velodrom_1",
		Title:      "Sechstagerennen",
		StartDate:  time.Date(2026, time.January, 25, 19, 0, 0, 0, time.UTC),
		ProviderID: "velodrom",
		Location:   "Velodrom",
		Latitude:   &lat,
		Longitude:  &lon,
	}
	require.NoError(t, writer.LoadBatch(ctx, []domain.Event{event}))

	pm := readPublished(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "velodrom_1", pm.Key)
	assert.Equal(t, "velodrom", pm.Headers["provider_id"])
	_, err := time.Parse(time.RFC3339, pm.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")
	require.True(t, pm.Event.HasCoordinates())
	assert.InDelta(t, lat, *pm.Event.Latitude, 1e-9)
}

// TestRefreshCyclePublishes wires the refresher to a real Kafka sink and
// verifies that every refreshed event is published with its provider default.
func TestRefreshCyclePublishes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	clock := clockwork.NewRealClock()
	writer := kafka.NewWriter(cfg, discardLogger(), clock)
	t.Cleanup(func() { _ = writer.Close() })

	lat, lon := 52.5186, 13.4083
	providers := providerList{{
		ID: "example", Enabled: true, Module: "example", Region: "berlin",
		Latitude: &lat, Longitude: &lon,
	}}

	r := pipeline.New(providers, provider.Builtin(nil, clock), store.New(clock), discardLogger(),
		observability.NewMetricsForTesting(), time.Minute, pipeline.WithSink(writer), pipeline.WithClock(clock))
	res := r.RunCycle(ctx, false)
	require.Equal(t, []string{"example"}, res.Refreshed)

	consumer := newConsumer(t, broker)
	for i := 0; i < 2; i++ {
		pm := readPublished(ctx, t, consumer)
		assert.Equal(t, "example", pm.Headers["provider_id"])
		require.True(t, pm.Event.HasCoordinates())
		assert.InDelta(t, lat, *pm.Event.Latitude, 1e-9)
	}
}

type providerList []domain.ProviderConfig

func (p providerList) Providers() ([]domain.ProviderConfig, error) { return p, nil }
