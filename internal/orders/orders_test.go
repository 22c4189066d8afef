package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cart"
	"storefront/internal/money"
	"storefront/internal/profile"
)

func sampleOrder() Order {
	return Order{
		ID:     NewID(),
		UserID: "u1",
		Lines: []cart.Line{{ProductID: 1, Name: "Abstract Harmony", UnitPrice: 3599, Quantity: 2,
			Size: cart.DefaultSize, Frame: cart.DefaultFrame}},
		Totals:        cart.Totals{Subtotal: 7198, FinalTotal: 7198, Count: 2},
		Address:       profile.Address{ID: "a1", FullName: "Asha", City: "Pune", Pincode: "411001"},
		PaymentMethod: profile.MethodUPI,
		PaymentRef:    "pay_1",
		Currency:      money.INR,
		CreatedAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFileStore_PublishAndGet(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	o := sampleOrder()
	require.NoError(t, fs.Publish(ctx, o))

	got, err := fs.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o, got)

	_, err = fs.Get(ctx, NewID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = fs.Get(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeKafkaWriter struct {
	msgs []kafka.Message
	fail bool
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.fail {
		return errors.New("fail")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	fk := &fakeKafkaWriter{}
	o := sampleOrder()
	require.NoError(t, NewKafkaPublisherWith(fk).Publish(context.Background(), o))
	require.Len(t, fk.msgs, 1)
	assert.Equal(t, o.ID, string(fk.msgs[0].Key))
	var got Order
	require.NoError(t, json.Unmarshal(fk.msgs[0].Value, &got))
	assert.Equal(t, o.Totals, got.Totals)

	assert.Error(t, NewKafkaPublisherWith(&fakeKafkaWriter{fail: true}).Publish(context.Background(), o))
}

type fakeProducer struct {
	produced []*ck.Message
	failWith error
	noReport bool
	flushed  bool
	closed   bool
}

func (f *fakeProducer) Produce(msg *ck.Message, deliveryChan chan ck.Event) error {
	f.produced = append(f.produced, msg)
	if f.noReport {
		return nil
	}
	report := *msg
	report.TopicPartition.Error = f.failWith
	deliveryChan <- &report
	return nil
}

func (f *fakeProducer) Flush(int) int { f.flushed = true; return 0 }
func (f *fakeProducer) Close()        { f.closed = true }

func TestConfluentPublisher(t *testing.T) {
	fp := &fakeProducer{}
	p := NewConfluentPublisherWith(fp, "storefront.orders")
	o := sampleOrder()
	require.NoError(t, p.Publish(context.Background(), o))
	require.Len(t, fp.produced, 1)
	assert.Equal(t, "storefront.orders", *fp.produced[0].TopicPartition.Topic)
	assert.Equal(t, o.ID, string(fp.produced[0].Key))

	p.Close()
	assert.True(t, fp.flushed)
	assert.True(t, fp.closed)
}

func TestConfluentPublisher_DeliveryFailure(t *testing.T) {
	p := NewConfluentPublisherWith(&fakeProducer{failWith: errors.New("broker gone")}, "t")
	err := p.Publish(context.Background(), sampleOrder())
	assert.ErrorContains(t, err, "broker gone")
}

func TestConfluentPublisher_ContextCancelled(t *testing.T) {
	p := NewConfluentPublisherWith(&fakeProducer{noReport: true}, "t")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Publish(ctx, sampleOrder()), context.DeadlineExceeded)
}

func TestMultiPublisher(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	fk := &fakeKafkaWriter{}
	o := sampleOrder()
	require.NoError(t, NewMultiPublisher(fs, NewKafkaPublisherWith(fk)).Publish(context.Background(), o))
	_, err = fs.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, fk.msgs, 1)

	bad := &fakeKafkaWriter{fail: true}
	after := &fakeKafkaWriter{}
	err = NewMultiPublisher(NewKafkaPublisherWith(bad), NewKafkaPublisherWith(after)).Publish(context.Background(), o)
	assert.Error(t, err)
	assert.Empty(t, after.msgs)
}
