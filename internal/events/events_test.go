package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheildo/nexus-rendezvous/internal/events"
	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

func sampleMatch() matchmaking.Match {
	return matchmaking.Match{
		ID: "2b1f6a2e-4d1c-4f7a-9a55-0c1d2e3f4a5b",
		First: matchmaking.MatchMember{
			ID: "ab12cd3", Role: 1, Address: netip.MustParseAddrPort("10.0.0.1:5000"), Delivered: true,
		},
		Second: matchmaking.MatchMember{
			ID: "xy98zz1", Role: 2, Address: netip.MustParseAddrPort("10.0.0.2:6000"), Delivered: false,
		},
		MatchedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewMatchFoundEvent(t *testing.T) {
	event := events.NewMatchFoundEvent(sampleMatch())

	assert.Equal(t, "2b1f6a2e-4d1c-4f7a-9a55-0c1d2e3f4a5b", event.MatchID)
	assert.Equal(t, []string{"ab12cd3", "xy98zz1"}, event.PlayerIDs)
	require.Len(t, event.Players, 2)
	assert.Equal(t, events.MatchedPlayer{ID: "ab12cd3", Role: 1, Address: "10.0.0.1:5000", Delivered: true}, event.Players[0])
	assert.Equal(t, events.MatchedPlayer{ID: "xy98zz1", Role: 2, Address: "10.0.0.2:6000", Delivered: false}, event.Players[1])
}

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_MatchFound(t *testing.T) {
	w := &fakeWriter{}
	p := events.NewKafkaPublisher(w)

	p.MatchFound(context.Background(), sampleMatch())

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "2b1f6a2e-4d1c-4f7a-9a55-0c1d2e3f4a5b", string(msg.Key))

	var event events.MatchFoundEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, []string{"ab12cd3", "xy98zz1"}, event.PlayerIDs)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteErrorIsSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := events.NewKafkaPublisher(w)

	assert.NotPanics(t, func() { p.MatchFound(context.Background(), sampleMatch()) })
	assert.Empty(t, w.messages)
}

// fakeReader replays queued messages, then blocks until the context ends.
type fakeReader struct {
	messages chan kafka.Message
	closed   chan struct{}
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.messages:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error {
	close(r.closed)
	return nil
}

func TestFeed_Run(t *testing.T) {
	good, err := json.Marshal(events.NewMatchFoundEvent(sampleMatch()))
	require.NoError(t, err)

	r := &fakeReader{messages: make(chan kafka.Message, 2), closed: make(chan struct{})}
	r.messages <- kafka.Message{Key: []byte("bad"), Value: []byte("{not json")}
	r.messages <- kafka.Message{Key: []byte("good"), Value: good}

	received := make(chan events.MatchFoundEvent, 1)
	feed := events.NewFeed(r, func(e events.MatchFoundEvent) { received <- e })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(done)
	}()

	select {
	case e := <-received:
		assert.Equal(t, "2b1f6a2e-4d1c-4f7a-9a55-0c1d2e3f4a5b", e.MatchID)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not deliver the event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
	select {
	case <-r.closed:
	default:
		t.Fatal("reader was not closed")
	}
}

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	if p.err != nil {
		return redis.NewIntResult(0, p.err)
	}
	return redis.NewIntResult(1, nil)
}

func TestRedisPublisher_MatchFound(t *testing.T) {
	fp := &fakePublisher{}
	p := events.NewRedisPublisher(fp, "rendezvous:matches")

	p.MatchFound(context.Background(), sampleMatch())

	assert.Equal(t, "rendezvous:matches", fp.channel)
	var event events.MatchFoundEvent
	require.NoError(t, json.Unmarshal(fp.payload, &event))
	assert.Equal(t, "xy98zz1", event.Players[1].ID)
}

func TestRedisPublisher_ErrorIsSwallowed(t *testing.T) {
	fp := &fakePublisher{err: errors.New("connection refused")}
	p := events.NewRedisPublisher(fp, "rendezvous:matches")

	assert.NotPanics(t, func() { p.MatchFound(context.Background(), sampleMatch()) })
}
