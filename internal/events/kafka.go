package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes a MatchFoundEvent for every match.
type KafkaPublisher struct {
	matchmaking.NopObserver
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// MatchFound publishes m keyed by its match ID. Failures are logged only.
func (p *KafkaPublisher) MatchFound(ctx context.Context, m matchmaking.Match) {
	eventBytes, err := json.Marshal(NewMatchFoundEvent(m))
	if err != nil {
		slog.Error("Failed to marshal match_found event", "error", err)
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.ID),
		Value: eventBytes,
		Time:  m.MatchedAt,
	})
	if err != nil {
		slog.Error("Failed to publish match_found event", "matchID", m.ID, "error", err)
		return
	}
	slog.Debug("Published match_found event", "matchID", m.ID)
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
