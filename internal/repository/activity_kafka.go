package repository

import (
	"context"

	"PortfolioDash/internal/domain/models"
	"PortfolioDash/internal/domain/repository"
)

// MessageProducer is satisfied by *kafka.Producer.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaActivityPublisher sends activity events as JSON, keyed by session id
// so one session's events stay ordered.
type KafkaActivityPublisher struct {
	producer MessageProducer
	topic    string
}

func NewKafkaActivityPublisher(producer MessageProducer, topic string) *KafkaActivityPublisher {
	return &KafkaActivityPublisher{producer: producer, topic: topic}
}

func (p *KafkaActivityPublisher) Record(ctx context.Context, ev models.ActivityEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.SessionID), ev)
}

func (p *KafkaActivityPublisher) Close() error {
	return p.producer.Close()
}

var _ repository.ActivitySink = (*KafkaActivityPublisher)(nil)
