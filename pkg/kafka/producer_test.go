package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEncodesJSONWithKey(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "snappy")

	err := p.Publish(context.Background(), "dashboard.activity", []byte("sess-1"), map[string]string{"kind": "login_ok"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "dashboard.activity" || string(m.Key) != "sess-1" {
		t.Fatalf("unexpected message %+v", m)
	}
	var body map[string]string
	if err := json.Unmarshal(m.Value, &body); err != nil || body["kind"] != "login_ok" {
		t.Fatalf("unexpected value %s", m.Value)
	}
}

func TestPublishMessagePassesRawStrings(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "none")

	if err := p.PublishMessage(context.Background(), "dashboard.logs", "plain"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if string(w.msgs[0].Value) != "plain" || w.msgs[0].Key != nil {
		t.Fatalf("unexpected message %+v", w.msgs[0])
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&captureWriter{err: boom}, "none")

	err := p.Publish(context.Background(), "t", nil, "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestCloseClosesWriter(t *testing.T) {
	w := &captureWriter{}
	if err := NewProducerWithWriter(w, "none").Close(); err != nil || !w.closed {
		t.Fatalf("writer not closed")
	}
}
