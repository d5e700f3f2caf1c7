package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/magerisk/pkg/models"
)

// ErrPublisherClosed is returned when publishing on a closed publisher
var ErrPublisherClosed = errors.New("publisher is closed")

// Publisher emits platform events
type Publisher interface {
	Publish(ctx context.Context, event models.BaseEvent) error
	Close() error
}

// KafkaConfig holds broker and topic settings for the event stream
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// KafkaPublisher writes platform events to a Kafka topic. Events are
// keyed by entity id so consumers see per-entity ordering.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
	mu     sync.Mutex
	closed bool
}

// NewKafkaPublisher creates a publisher for the configured topic
func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Compression:  kafka.Gzip,
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, logger: logger}, nil
}

// Publish serializes the event and writes it to the topic
func (p *KafkaPublisher) Publish(ctx context.Context, event models.BaseEvent) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	p.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.EntityID),
		Value: value,
	}
	if event.EntityID == "" {
		message.Key = []byte(event.ID)
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("writing event %s: %w", event.Type, err)
	}
	p.logger.Debug("event published",
		zap.String("type", string(event.Type)),
		zap.String("entity_id", event.EntityID),
	)
	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.BaseEvent) error { return nil }
func (NoopPublisher) Close() error                                    { return nil }
