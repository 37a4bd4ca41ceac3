package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cheildo/nexus-rendezvous/internal/diagnostics"
	"github.com/cheildo/nexus-rendezvous/internal/events"
	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
	"github.com/cheildo/nexus-rendezvous/internal/metrics"
	"github.com/cheildo/nexus-rendezvous/internal/pkg/config"
	"github.com/cheildo/nexus-rendezvous/internal/pkg/kafka"
	"github.com/cheildo/nexus-rendezvous/internal/pkg/logging"
	"github.com/cheildo/nexus-rendezvous/internal/pkg/redis"
	"github.com/cheildo/nexus-rendezvous/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration Loading ---
	config.SetDefaults()
	if err := config.Load("rendezvous-server"); err != nil {
		slog.Error("Failed to read configuration file", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, viper.GetString("log.level"), viper.GetString("log.format")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Observers ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observers := []matchmaking.Observer{metrics.NewCollector(reg)}

	if viper.GetBool("kafka.enabled") {
		writer := kafka.NewProducer(kafka.WriterConfig{
			Brokers: viper.GetStringSlice("kafka.brokers"),
			Topic:   viper.GetString("kafka.match_found_topic"),
			Async:   viper.GetBool("kafka.async"),
		})
		publisher := events.NewKafkaPublisher(writer)
		defer publisher.Close()
		observers = append(observers, publisher)
		slog.Info("Publishing matches to Kafka", "topic", viper.GetString("kafka.match_found_topic"))
	}

	if viper.GetBool("redis.enabled") {
		rdb, err := redis.NewClient(ctx, redis.Config{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		observers = append(observers, events.NewRedisPublisher(rdb, viper.GetString("redis.match_channel")))
		slog.Info("Redis connection successful.", "channel", viper.GetString("redis.match_channel"))
	}

	// --- Coordinator ---
	// The coordinator outlives the transports so that disconnects during
	// shutdown still deregister their players.
	coordCtx, stopCoord := context.WithCancel(context.Background())
	defer stopCoord()
	writeTimeout := viper.GetDuration("control.write_timeout")
	coord := matchmaking.NewCoordinator(matchmaking.Config{SendTimeout: writeTimeout}, observers...)
	coord.Start(coordCtx)

	// --- Listeners ---
	host := viper.GetString("server.host")
	controlLis, err := net.Listen("tcp", net.JoinHostPort(host, viper.GetString("control.port")))
	if err != nil {
		slog.Error("Failed to listen on control port", "port", viper.GetString("control.port"), "error", err)
		os.Exit(1)
	}
	probeAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, viper.GetString("probe.port")))
	if err != nil {
		slog.Error("Invalid probe address", "error", err)
		os.Exit(1)
	}
	probeConn, err := net.ListenUDP("udp", probeAddr)
	if err != nil {
		slog.Error("Failed to listen on probe port", "port", viper.GetString("probe.port"), "error", err)
		os.Exit(1)
	}
	grpcLis, err := net.Listen("tcp", net.JoinHostPort(host, viper.GetString("grpc_server.port")))
	if err != nil {
		slog.Error("Failed to listen on gRPC port", "port", viper.GetString("grpc_server.port"), "error", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := transport.NewStreamServer(coord, writeTimeout).Serve(ctx, controlLis); err != nil {
			slog.Error("Control server failed", "error", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if err := transport.NewDatagramServer(coord).Serve(ctx, probeConn); err != nil {
			slog.Error("Probe server failed", "error", err)
			cancel()
		}
	}()

	// --- gRPC Server Initialization ---
	grpcServer := grpc.NewServer()
	diagnostics.RegisterStatusServer(grpcServer, diagnostics.NewGRPCHandler(coord))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(diagnostics.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	go func() {
		slog.Info("Status gRPC server listening", "address", grpcLis.Addr().String())
		if err := grpcServer.Serve(grpcLis); err != nil {
			slog.Error("gRPC server failed to serve", "error", err)
		}
	}()

	// --- HTTP Diagnostics ---
	wsHandler := transport.NewWebsocketHandler(coord, writeTimeout)
	httpServer := &http.Server{
		Addr:    net.JoinHostPort(host, viper.GetString("diagnostics.port")),
		Handler: diagnostics.NewRouter(coord, wsHandler, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	}
	go func() {
		slog.Info("Diagnostics server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Diagnostics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	slog.Info("Shutting down servers...")
	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Diagnostics server forced to shutdown", "error", err)
	}
	wsHandler.Shutdown()
	grpcServer.GracefulStop()
	wg.Wait()

	stopCoord()
	coord.Wait()
	slog.Info("Servers shut down gracefully.")
}
