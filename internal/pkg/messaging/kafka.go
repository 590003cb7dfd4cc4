package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/atomic"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers []string
	// Transport overrides the default connection settings (TLS, SASL,
	// client id, dial timeout).
	Transport *kafka.Transport
	// BatchTimeout bounds how long a message waits for a batch to fill.
	// Events are low volume, so it defaults to 10ms instead of kafka-go's 1s.
	BatchTimeout time.Duration
}

// Kafka publishes through one writer; the topic travels on each message so
// a single connection pool serves every event type. Messages with the same
// key land on the same partition.
type Kafka struct {
	writer *kafka.Writer
	closed atomic.Bool
}

// NewKafka constructs a Kafka publisher that waits for all in-sync replicas.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: false,
	}
	if cfg.Transport != nil {
		w.Transport = cfg.Transport
	}

	return &Kafka{writer: w}, nil
}

// Close flushes pending messages and closes the writer.
func (k *Kafka) Close() error {
	if !k.closed.CompareAndSwap(false, true) {
		return nil
	}
	return k.writer.Close()
}

// Publish writes msg to the destination topic and waits for the ack.
func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := precheck(ctx, destination, msg, false, k.closed.Load()); err != nil {
		return PublishResult{}, err
	}

	km := kafkaMessage(destination, msg)
	if err := k.writer.WriteMessages(ctx, km); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: km.Time}, nil
}

func kafkaMessage(topic string, msg OutgoingMessage) kafka.Message {
	km := kafka.Message{
		Topic: topic,
		Key:   msg.Key,
		Value: msg.Body,
		Time:  time.Now(),
	}
	for _, h := range msg.Headers {
		if h.Key != "" {
			km.Headers = append(km.Headers, kafka.Header{Key: h.Key, Value: h.Value})
		}
	}
	return km
}
