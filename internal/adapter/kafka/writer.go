package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/cloudtracker/internal/config"
	"github.com/couchcryptid/cloudtracker/internal/domain"
)

// Publisher produces capture events to a Kafka topic.
// It implements domain.EventPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured capture topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishCapture writes one event for rec, keyed by the record ID so updates
// to the same capture land on the same partition.
func (p *Publisher) PublishCapture(ctx context.Context, rec domain.CaptureRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish capture %s: %w", rec.ID, err)
	}
	p.logger.Debug("capture event published", "id", rec.ID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a record's event form into a Kafka message.
func serializeToMessage(rec domain.CaptureRecord) (kafkago.Message, error) {
	data, err := json.Marshal(domain.NewCaptureEvent(rec))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize capture event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "cloud_type", Value: []byte(rec.CloudType)},
			{Key: "captured_at", Value: []byte(rec.CapturedAt.Format(time.RFC3339))},
		},
	}, nil
}
