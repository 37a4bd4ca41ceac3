// Package client implements the player side of the rendezvous exchange.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

const DefaultProbeInterval = 500 * time.Millisecond

var (
	// ErrMalformedID is returned when the first control line is not a valid id.
	ErrMalformedID = errors.New("malformed player id")
	// ErrMalformedMatch is returned when the match line cannot be parsed.
	ErrMalformedMatch = errors.New("malformed match line")
)

// Config locates the rendezvous server.
type Config struct {
	Server        string
	ControlPort   int
	ProbePort     int
	ProbeInterval time.Duration
}

// Result is the outcome of a successful Matchmake. Conn is the socket whose
// public address was announced to the peer; the caller owns it and must
// close it.
type Result struct {
	ID   string
	Role int
	Peer netip.AddrPort
	Conn *net.UDPConn
}

// Matchmake registers with the server, probes until paired and returns the
// peer's address. It blocks until a match arrives, the server hangs up or
// ctx is done.
func Matchmake(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = DefaultProbeInterval
	}

	var d net.Dialer
	controlAddr := net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.ControlPort))
	conn, err := d.DialContext(ctx, "tcp", controlAddr)
	if err != nil {
		return nil, fmt.Errorf("dial control channel %s: %w", controlAddr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	reader := bufio.NewReader(conn)
	id, err := readLine(ctx, reader)
	if err != nil {
		return nil, fmt.Errorf("read player id: %w", err)
	}
	if !matchmaking.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	slog.Info("Received player id", "id", id)

	// Probes go to the address the control channel resolved to.
	server := conn.RemoteAddr().(*net.TCPAddr).AddrPort().Addr().Unmap()
	probeAddr := netip.AddrPortFrom(server, uint16(cfg.ProbePort))

	network := "udp6"
	if server.Is4() {
		network = "udp4"
	}
	udp, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, fmt.Errorf("open probe socket: %w", err)
	}

	probeCtx, cancelProbes := context.WithCancel(ctx)
	probesDone := make(chan struct{})
	go func() {
		defer close(probesDone)
		probe(probeCtx, udp, probeAddr, id, cfg.ProbeInterval)
	}()

	line, err := readLine(ctx, reader)
	cancelProbes()
	<-probesDone
	if err != nil {
		udp.Close()
		return nil, fmt.Errorf("await match: %w", err)
	}

	role, peer, err := ParseMatch(line)
	if err != nil {
		udp.Close()
		return nil, err
	}
	slog.Info("Matched", "id", id, "role", role, "peer", peer)

	return &Result{ID: id, Role: role, Peer: peer, Conn: udp}, nil
}

// probe sends id to addr immediately and then every interval until ctx is
// done. Send errors are logged and retried on the next tick.
func probe(ctx context.Context, conn *net.UDPConn, addr netip.AddrPort, id string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := conn.WriteToUDPAddrPort([]byte(id), addr); err != nil {
			slog.Warn("Failed to send probe", "address", addr, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func readLine(ctx context.Context, r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ParseMatch parses a "<role> <ip>:<port>" match line.
func ParseMatch(line string) (int, netip.AddrPort, error) {
	roleText, addrText, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok {
		return 0, netip.AddrPort{}, fmt.Errorf("%w: %q", ErrMalformedMatch, line)
	}

	role, err := strconv.Atoi(roleText)
	if err != nil || (role != 1 && role != 2) {
		return 0, netip.AddrPort{}, fmt.Errorf("%w: bad role %q", ErrMalformedMatch, roleText)
	}

	peer, err := netip.ParseAddrPort(addrText)
	if err != nil {
		return 0, netip.AddrPort{}, fmt.Errorf("%w: %v", ErrMalformedMatch, err)
	}
	return role, peer, nil
}
