package changelog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/segmentio/kafka-go"

	"storefront/internal/cart"
)

func entry(key string, seq int64, op cart.Op) Entry {
	return Entry{Key: key, Event: cart.Event{Seq: seq, Op: op, ProductID: 3, TS: seq}}
}

func TestFileWriter_Append(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(dir, "cart.jsonl")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	e1 := entry("cartItems/a", 1, cart.OpAdd)
	e2 := entry("cartItems/a", 2, cart.OpClear)
	if err := w.Append(e1); err != nil {
		t.Fatalf("append1: %v", err)
	}
	if err := w.Append(e2); err != nil {
		t.Fatalf("append2: %v", err)
	}

	f, err := os.Open(w.Path())
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	var got []Entry
	for s.Scan() {
		var e Entry
		if err := json.Unmarshal(s.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, e)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 lines, got %d", len(got))
	}
	if got[0].Event.Op != cart.OpAdd || got[1].Event.Seq != 2 || got[1].Key != "cartItems/a" {
		t.Fatalf("mismatch: %+v", got)
	}
}

// fakeKafkaWriter implements kafkaMessageWriter for tests
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

func TestKafkaWriter_Append_Success(t *testing.T) {
	fk := &fakeKafkaWriter{}
	kw := NewKafkaWriterWith(fk)
	e := entry("cartItems/k1", 1, cart.OpAdd)
	if err := kw.Append(e); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(fk.msgs) != 1 {
		t.Fatalf("want 1 msg, got %d", len(fk.msgs))
	}
	if string(fk.msgs[0].Key) != e.Key {
		t.Fatalf("bad key: %s", string(fk.msgs[0].Key))
	}
	if err := kw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestKafkaWriter_Append_Fail(t *testing.T) {
	fk := &fakeKafkaWriter{fail: true}
	kw := NewKafkaWriterWith(fk)
	if err := kw.Append(entry("k", 1, cart.OpAdd)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMultiWriter_StopsOnFirstError(t *testing.T) {
	ok := &fakeKafkaWriter{}
	bad := &fakeKafkaWriter{fail: true}
	after := &fakeKafkaWriter{}
	mw := NewMultiWriter(NewKafkaWriterWith(ok), NewKafkaWriterWith(bad), NewKafkaWriterWith(after))
	if err := mw.Append(entry("k", 1, cart.OpAdd)); err == nil {
		t.Fatalf("expected error")
	}
	if len(ok.msgs) != 1 || len(after.msgs) != 0 {
		t.Fatalf("unexpected fan-out: ok=%d after=%d", len(ok.msgs), len(after.msgs))
	}
}

func TestBrokers(t *testing.T) {
	got := Brokers(" a:9092, ,b:9092,")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("Brokers: %v", got)
	}
}
