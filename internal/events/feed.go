package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader the feed needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Feed consumes match_found events from Kafka.
type Feed struct {
	reader MessageReader
	handle func(MatchFoundEvent)
}

func NewFeed(reader MessageReader, handle func(MatchFoundEvent)) *Feed {
	return &Feed{
		reader: reader,
		handle: handle,
	}
}

// Run starts the consumer loop and returns when ctx is cancelled. It should
// be run in a goroutine.
func (f *Feed) Run(ctx context.Context) {
	slog.Info("Match feed started")
	defer f.reader.Close()

	for {
		// ReadMessage blocks until a message is available or an error occurs.
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("Error reading from Kafka", "error", err)
			continue
		}

		var event MatchFoundEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("Failed to unmarshal match_found event", "key", string(msg.Key), "error", err)
			continue
		}
		f.handle(event)
	}
	slog.Info("Match feed stopped.")
}
