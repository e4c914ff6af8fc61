package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/safar/go-storefront/internal/models"
	"github.com/segmentio/kafka-go"
)

const (
	orderCreatedEvent = "order.created"
	kafkaMaxAttempts  = 2
)

// Writer is the subset of *kafka.Writer used for publishing.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter publishes each order as soon as it is written. timeout
// bounds a single produce request.
func NewKafkaWriter(topic string, timeout time.Duration, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           timeout,
		MaxAttempts:            kafkaMaxAttempts,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// KafkaNotifier publishes the full order as JSON keyed by order id, so every
// event for one order lands on the same partition.
type KafkaNotifier struct {
	writer Writer
}

func NewKafkaNotifier(w Writer) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

func (k *KafkaNotifier) Name() string {
	return "kafka"
}

func (k *KafkaNotifier) Notify(ctx context.Context, order *models.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(orderCreatedEvent)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order: %w", err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
