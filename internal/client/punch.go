package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultGreetInterval = 200 * time.Millisecond
	greetBufferSize      = 512
)

// Greet opens the direct path to the peer: it sends "hello <id>" to
// res.Peer every interval until a datagram from the peer arrives, and
// returns that datagram's payload. Datagrams from other senders are
// ignored.
func Greet(ctx context.Context, res *Result, interval time.Duration) (string, error) {
	if interval <= 0 {
		interval = DefaultGreetInterval
	}

	hello := []byte("hello " + res.ID)
	send := func() {
		if _, err := res.Conn.WriteToUDPAddrPort(hello, res.Peer); err != nil {
			slog.Warn("Failed to send greeting", "peer", res.Peer, "error", err)
		}
	}

	// At least one greeting leaves before we can return.
	send()
	greetCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-greetCtx.Done():
				return
			case <-ticker.C:
				send()
			}
		}
	}()

	// Wake the blocked read when ctx is done.
	stop := context.AfterFunc(ctx, func() { res.Conn.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, greetBufferSize)
	for {
		n, from, err := res.Conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.Conn.SetReadDeadline(time.Time{})
				return "", ctxErr
			}
			return "", fmt.Errorf("read from peer: %w", err)
		}
		if from.Addr().Unmap() != res.Peer.Addr().Unmap() || from.Port() != res.Peer.Port() {
			slog.Debug("Ignoring datagram from unexpected sender", "from", from)
			continue
		}
		return string(buf[:n]), nil
	}
}
