package events

import (
	"context"
	"time"

	"github.com/placelist/backend/pkg/logger"
	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(key, value []byte) error
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(broker, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Publish is nil-safe: without a configured broker events are skipped so the
// triggering operation never fails on delivery.
func (p *Producer) Publish(key, value []byte) error {
	if p == nil || p.writer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Time:  time.Now(),
	}); err != nil {
		logger.Error("event_publish_failed", err, map[string]interface{}{
			"key": string(key),
		})
		return err
	}

	return nil
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
