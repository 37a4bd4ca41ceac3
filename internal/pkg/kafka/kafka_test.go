package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestNewProducer(t *testing.T) {
	w := NewProducer(WriterConfig{Brokers: []string{"b1:9092", "b2:9092"}, Topic: "rendezvous.match_found", Async: true})
	defer w.Close()

	assert.Equal(t, "rendezvous.match_found", w.Topic)
	assert.Equal(t, "b1:9092,b2:9092", w.Addr.String())
	assert.IsType(t, &kafka.Hash{}, w.Balancer, "match ID keys select the partition")
	assert.True(t, w.Async)
	assert.NotNil(t, w.Completion)

	sync := NewProducer(WriterConfig{Brokers: []string{"b1:9092"}, Topic: "t"})
	defer sync.Close()
	assert.False(t, sync.Async)
	assert.Nil(t, sync.Completion)
}

func TestNewConsumer(t *testing.T) {
	grouped := NewConsumer([]string{"b1:9092"}, "rendezvous.match_found", "match-feed")
	defer grouped.Close()
	assert.Equal(t, "match-feed", grouped.Config().GroupID)
	assert.Equal(t, "rendezvous.match_found", grouped.Config().Topic)
	assert.Equal(t, kafka.LastOffset, grouped.Config().StartOffset)

	tail := NewConsumer([]string{"b1:9092"}, "rendezvous.match_found", "")
	defer tail.Close()
	assert.Empty(t, tail.Config().GroupID)
	assert.Equal(t, kafka.LastOffset, tail.Offset())
}
