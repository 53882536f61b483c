package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rain-station-coding/internal/config"
	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

const (
	defaultAttempts   = 3
	defaultBackoff    = 200 * time.Millisecond
	defaultMaxBackoff = 2 * time.Second
)

// Writer publishes coded stations to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer     messageWriter
	topic      string
	logger     *slog.Logger
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewWriter creates a Kafka producer for the configured station topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{
		writer:     w,
		topic:      cfg.KafkaTopic,
		logger:     logger,
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Publish serializes every station and writes them in a single WriteMessages
// call. Messages are keyed by station code so all events for one station land
// on the same partition.
func (w *Writer) Publish(ctx context.Context, records []domain.StationRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.write(ctx, msgs); err != nil {
		return fmt.Errorf("publish %d stations to %s: %w", len(msgs), w.topic, err)
	}
	w.logger.Info("stations published", "topic", w.topic, "count", len(msgs))
	return nil
}

// write retries transient broker failures with exponential backoff.
func (w *Writer) write(ctx context.Context, msgs []kafkago.Message) error {
	attempts := max(w.attempts, 1)
	backoff := w.backoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = w.writer.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		if attempt == attempts || !isTemporary(err) {
			return err
		}
		w.logger.Warn("publish failed, retrying",
			"topic", w.topic, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return errors.Join(err, ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, w.maxBackoff)
	}
	return err
}

func isTemporary(err error) bool {
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Close flushes pending messages and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a StationRecord into a Kafka message.
func serializeToMessage(record domain.StationRecord) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize station %q: %w", record.Name, err)
	}
	return kafkago.Message{
		Key:   []byte(record.Code),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station_code", Value: []byte(record.Code)},
			{Key: "quadrant", Value: []byte(record.Quadrant())},
			{Key: "coded_at", Value: []byte(record.CodedAt.Format(time.RFC3339))},
		},
	}, nil
}
