package orders

import (
	"context"
	"encoding/json"
	"fmt"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/segmentio/kafka-go"

	"storefront/internal/changelog"
)

// KafkaPublisher writes orders to a topic keyed by order id.
type KafkaPublisher struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaPublisher(bootstrap, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(changelog.Brokers(bootstrap)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}
}

// NewKafkaPublisherWith is only for tests to inject a fake writer.
func NewKafkaPublisherWith(w kafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) Publish(ctx context.Context, o Order) error {
	b, err := json.Marshal(&o)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(o.ID), Value: b})
}

func (k *KafkaPublisher) Close() error {
	if c, ok := k.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// ConfluentPublisher uses an idempotent librdkafka producer and waits for
// the delivery report of each order.
type ConfluentPublisher struct {
	producer ckProducer
	topic    string
}

// ckProducer abstracts ck.Producer for testability.
type ckProducer interface {
	Produce(msg *ck.Message, deliveryChan chan ck.Event) error
	Flush(timeoutMs int) int
	Close()
}

func NewConfluentPublisher(bootstrap, topic string) (*ConfluentPublisher, error) {
	p, err := ck.NewProducer(&ck.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"enable.idempotence": true,
		"acks":               "all",
	})
	if err != nil {
		return nil, fmt.Errorf("producer: %w", err)
	}
	return &ConfluentPublisher{producer: p, topic: topic}, nil
}

// NewConfluentPublisherWith is only for tests to inject a fake producer.
func NewConfluentPublisherWith(p ckProducer, topic string) *ConfluentPublisher {
	return &ConfluentPublisher{producer: p, topic: topic}
}

func (c *ConfluentPublisher) Publish(ctx context.Context, o Order) error {
	b, err := json.Marshal(&o)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	delivery := make(chan ck.Event, 1)
	msg := &ck.Message{
		TopicPartition: ck.TopicPartition{Topic: &c.topic, Partition: ck.PartitionAny},
		Key:            []byte(o.ID),
		Value:          b,
	}
	if err := c.producer.Produce(msg, delivery); err != nil {
		return fmt.Errorf("produce: %w", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-delivery:
		m, ok := ev.(*ck.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery: %w", m.TopicPartition.Error)
		}
		return nil
	}
}

// Close flushes outstanding messages for up to five seconds.
func (c *ConfluentPublisher) Close() {
	c.producer.Flush(5000)
	c.producer.Close()
}
