package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// ckConsumer abstracts ck.Consumer for testability.
type ckConsumer interface {
	ReadMessage(timeout time.Duration) (*ck.Message, error)
	CommitMessage(m *ck.Message) ([]ck.TopicPartition, error)
	Close() error
}

// Indexer consumes the orders topic and writes every committed order into a
// sink, typically a FileStore, so any instance can serve order lookups.
// Offsets are committed only after the sink accepted the order.
type Indexer struct {
	consumer ckConsumer
	sink     Publisher
	poll     time.Duration
	log      *zap.Logger
}

func NewIndexer(bootstrap, groupID, topic string, sink Publisher, log *zap.Logger) (*Indexer, error) {
	c, err := ck.NewConsumer(&ck.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"group.id":           groupID,
		"enable.auto.commit": false,
		"isolation.level":    "read_committed",
		"auto.offset.reset":  "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("consumer: %w", err)
	}
	if err := c.SubscribeTopics([]string{topic}, nil); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return NewIndexerWith(c, sink, log), nil
}

// NewIndexerWith is only for tests to inject a fake consumer.
func NewIndexerWith(c ckConsumer, sink Publisher, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{consumer: c, sink: sink, poll: time.Second, log: log}
}

// Run indexes orders until ctx is cancelled or the sink fails. Undecodable
// messages are logged and committed so they are not redelivered.
func (ix *Indexer) Run(ctx context.Context) error {
	defer ix.consumer.Close()
	for ctx.Err() == nil {
		msg, err := ix.consumer.ReadMessage(ix.poll)
		if err != nil {
			var kerr ck.Error
			if errors.As(err, &kerr) && kerr.IsTimeout() {
				continue
			}
			ix.log.Warn("read order message", zap.Error(err))
			continue
		}
		var o Order
		if err := json.Unmarshal(msg.Value, &o); err != nil || !validID.MatchString(o.ID) {
			ix.log.Warn("skipping undecodable order", zap.ByteString("key", msg.Key), zap.Error(err))
		} else if err := ix.sink.Publish(ctx, o); err != nil {
			return fmt.Errorf("index order %s: %w", o.ID, err)
		} else {
			ix.log.Debug("order indexed", zap.String("order_id", o.ID))
		}
		if _, err := ix.consumer.CommitMessage(msg); err != nil {
			ix.log.Warn("commit offset", zap.Error(err))
		}
	}
	return nil
}
