package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/cheildo/nexus-rendezvous/internal/client"
	"github.com/cheildo/nexus-rendezvous/internal/diagnostics"
	"github.com/cheildo/nexus-rendezvous/internal/pkg/config"
	"github.com/cheildo/nexus-rendezvous/internal/pkg/logging"
)

func main() {
	// --- Flags and Configuration ---
	pflag.String("server", "127.0.0.1", "rendezvous server host")
	pflag.Int("control-port", 9000, "control channel TCP port")
	pflag.Int("probe-port", 9001, "probe channel UDP port")
	pflag.Int("grpc-port", 9002, "status service port, used with --status")
	pflag.Duration("probe-interval", client.DefaultProbeInterval, "delay between probe datagrams")
	pflag.Duration("timeout", 0, "give up after this long (0 waits forever)")
	pflag.Bool("greet", false, "exchange a greeting with the peer after matching")
	statusOnly := pflag.Bool("status", false, "print the server status and exit")
	pflag.String("log-level", "info", "log level")
	pflag.Parse()

	config.SetDefaults()
	for key, flag := range map[string]string{
		"client.server":         "server",
		"control.port":          "control-port",
		"probe.port":            "probe-port",
		"grpc_server.port":      "grpc-port",
		"client.probe_interval": "probe-interval",
		"client.timeout":        "timeout",
		"client.greet":          "greet",
		"log.level":             "log-level",
	} {
		if err := viper.BindPFlag(key, pflag.Lookup(flag)); err != nil {
			slog.Error("Failed to bind flag", "flag", flag, "error", err)
			os.Exit(1)
		}
	}
	if err := config.Load("rendezvous-client"); err != nil {
		slog.Error("Failed to read configuration file", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, viper.GetString("log.level"), viper.GetString("log.format")))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if timeout := viper.GetDuration("client.timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var err error
	if *statusOnly {
		err = printStatus(ctx)
	} else {
		err = matchmake(ctx)
	}
	if err != nil {
		slog.Error("Client failed", "error", err)
		os.Exit(1)
	}
}

func printStatus(ctx context.Context) error {
	addr := net.JoinHostPort(viper.GetString("client.server"), viper.GetString("grpc_server.port"))
	statusClient, conn, err := diagnostics.Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := statusClient.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("get status from %s: %w", addr, err)
	}

	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(resp)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func matchmake(ctx context.Context) error {
	res, err := client.Matchmake(ctx, client.Config{
		Server:        viper.GetString("client.server"),
		ControlPort:   viper.GetInt("control.port"),
		ProbePort:     viper.GetInt("probe.port"),
		ProbeInterval: viper.GetDuration("client.probe_interval"),
	})
	if err != nil {
		return err
	}
	defer res.Conn.Close()

	fmt.Printf("id %s role %d peer %s local %s\n", res.ID, res.Role, res.Peer, res.Conn.LocalAddr())

	if !viper.GetBool("client.greet") {
		return nil
	}
	msg, err := client.Greet(ctx, res, client.DefaultGreetInterval)
	if err != nil {
		return fmt.Errorf("greet peer %s: %w", res.Peer, err)
	}
	fmt.Printf("peer says %q\n", msg)
	return nil
}
