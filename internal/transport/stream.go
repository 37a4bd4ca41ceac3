package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

const (
	disconnectTimeout = 5 * time.Second
	acceptBackoff     = 50 * time.Millisecond
)

// StreamHandler is the part of the coordinator the control channel drives.
type StreamHandler interface {
	OnConnect(ctx context.Context, stream matchmaking.Stream) (string, error)
	OnDisconnect(ctx context.Context, stream matchmaking.Stream) error
}

// StreamServer accepts line-oriented control connections.
type StreamServer struct {
	handler      StreamHandler
	writeTimeout time.Duration

	conns *ConnectionManager
	wg    sync.WaitGroup
}

func NewStreamServer(handler StreamHandler, writeTimeout time.Duration) *StreamServer {
	return &StreamServer{
		handler:      handler,
		writeTimeout: writeTimeout,
		conns:        NewConnectionManager(),
	}
}

// Serve accepts connections on ln until ctx is done, then closes the
// listener and every live connection and waits for their handlers.
func (s *StreamServer) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.conns.CloseAll()
	})
	defer stop()

	slog.Info("Control channel listening", "address", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return err
			}
			slog.Error("Failed to accept control connection", "error", err)
			time.Sleep(acceptBackoff)
			continue
		}

		lc := &lineConn{conn: conn, writeTimeout: s.writeTimeout}
		if !s.conns.Add(lc, conn) {
			// Shutdown began after Accept returned.
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.conns.Remove(lc)
			s.handleConnection(ctx, lc)
		}()
	}
}

// handleConnection registers the player, then reads lines only to notice
// when the peer goes away.
func (s *StreamServer) handleConnection(ctx context.Context, lc *lineConn) {
	peer := lc.conn.RemoteAddr().String()
	slog.Info("Control connection opened", "peer", peer)

	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
		defer cancel()
		logDisconnectError(s.handler.OnDisconnect(dctx, lc), peer)
		lc.conn.Close()
		slog.Info("Control connection closed", "peer", peer)
	}()

	if _, err := s.handler.OnConnect(ctx, lc); err != nil {
		slog.Warn("Could not register player", "peer", peer, "error", err)
		return
	}

	// Line content is ignored, whatever its length; only EOF or a read
	// error ends the session.
	if _, err := io.Copy(io.Discard, lc.conn); err != nil && ctx.Err() == nil {
		slog.Debug("Control connection read ended", "peer", peer, "error", err)
	}
}

// logDisconnectError reports a failed deregistration. A stopped coordinator
// has already discarded every player, so that case is not a warning.
func logDisconnectError(err error, peer string) {
	switch {
	case err == nil:
	case errors.Is(err, matchmaking.ErrCoordinatorStopped):
		slog.Debug("Coordinator already stopped, player not deregistered", "peer", peer)
	default:
		slog.Warn("Could not deregister player", "peer", peer, "error", err)
	}
}

// lineConn is a control connection as seen by the coordinator.
type lineConn struct {
	conn         net.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
}

// Send writes line followed by a newline. Concurrent sends are serialized.
func (c *lineConn) Send(ctx context.Context, line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok && c.writeTimeout > 0 {
		deadline, ok = time.Now().Add(c.writeTimeout), true
	}
	if ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}
