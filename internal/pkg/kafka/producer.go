package kafka

import (
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// WriterConfig describes the match event writer.
type WriterConfig struct {
	Brokers []string
	Topic   string
	// Async hands messages to a background batcher; failures surface only
	// through the completion log.
	Async bool
}

// NewProducer returns a writer for match events keyed by match ID.
func NewProducer(cfg WriterConfig) *kafka.Writer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		Async:        cfg.Async,
	}
	if cfg.Async {
		w.Completion = func(messages []kafka.Message, err error) {
			if err != nil {
				slog.Error("Kafka async write failed", "topic", cfg.Topic, "messages", len(messages), "error", err)
			}
		}
	}
	return w
}
