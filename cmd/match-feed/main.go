package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/cheildo/nexus-rendezvous/internal/events"
	"github.com/cheildo/nexus-rendezvous/internal/pkg/config"
	"github.com/cheildo/nexus-rendezvous/internal/pkg/kafka"
	"github.com/cheildo/nexus-rendezvous/internal/pkg/logging"
)

func main() {
	// --- Configuration Loading ---
	config.SetDefaults()
	if err := config.Load("match-feed"); err != nil {
		slog.Error("Failed to read configuration file", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, viper.GetString("log.level"), viper.GetString("log.format")))

	// --- Kafka Consumer ---
	reader := kafka.NewConsumer(
		viper.GetStringSlice("kafka.brokers"),
		viper.GetString("kafka.match_found_topic"),
		viper.GetString("kafka.consumer_group_id"),
	)
	feed := events.NewFeed(reader, func(e events.MatchFoundEvent) {
		attrs := []any{"matchID", e.MatchID, "matchedAt", e.MatchedAt}
		for _, p := range e.Players {
			attrs = append(attrs, slog.Group(p.ID, "role", p.Role, "address", p.Address, "delivered", p.Delivered))
		}
		slog.Info("Match found", attrs...)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Tailing match events", "topic", viper.GetString("kafka.match_found_topic"))
	feed.Run(ctx)
}
