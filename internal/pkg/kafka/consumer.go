package kafka

import (
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewConsumer returns a reader for the match event topic that starts at the
// newest event. An empty groupID reads partition 0 directly without
// committing offsets.
func NewConsumer(brokers []string, topic, groupID string) *kafka.Reader {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	}
	if groupID != "" {
		cfg.CommitInterval = time.Second
		cfg.StartOffset = kafka.LastOffset
	}

	r := kafka.NewReader(cfg)
	if groupID == "" {
		if err := r.SetOffset(kafka.LastOffset); err != nil {
			slog.Warn("Could not seek to the newest event", "topic", topic, "error", err)
		}
	}
	return r
}
