package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

// Publisher is the subset of redis.Cmdable the publisher needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher announces every match on a Redis Pub/Sub channel. Nothing
// is stored; subscribers that are not listening miss the event.
type RedisPublisher struct {
	matchmaking.NopObserver
	rdb     Publisher
	channel string
}

func NewRedisPublisher(rdb Publisher, channel string) *RedisPublisher {
	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
	}
}

// MatchFound publishes m. Failures are logged only.
func (p *RedisPublisher) MatchFound(ctx context.Context, m matchmaking.Match) {
	payload, err := json.Marshal(NewMatchFoundEvent(m))
	if err != nil {
		slog.Error("Failed to marshal match_found event", "error", err)
		return
	}

	receivers, err := p.rdb.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		slog.Error("Failed to publish match to Redis", "matchID", m.ID, "channel", p.channel, "error", err)
		return
	}
	slog.Debug("Published match to Redis", "matchID", m.ID, "receivers", receivers)
}
