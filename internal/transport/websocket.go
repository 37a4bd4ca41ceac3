package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// upgrader is used to upgrade an HTTP connection to a persistent WebSocket connection.
var upgrader = websocket.Upgrader{
	// Clients are native game builds, not browsers, so any origin is accepted.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebsocketHandler serves the control channel over WebSocket. Each text
// message carries one line; the protocol is otherwise the same as over TCP.
type WebsocketHandler struct {
	handler      StreamHandler
	writeTimeout time.Duration
	conns        *ConnectionManager
	wg           sync.WaitGroup
}

func NewWebsocketHandler(handler StreamHandler, writeTimeout time.Duration) *WebsocketHandler {
	return &WebsocketHandler{
		handler:      handler,
		writeTimeout: writeTimeout,
		conns:        NewConnectionManager(),
	}
}

// Shutdown closes every WebSocket player and waits until each has been
// deregistered. Hijacked connections outlive http.Server.Shutdown, so call
// this after it and before stopping the coordinator.
func (h *WebsocketHandler) Shutdown() {
	h.conns.CloseAll()
	h.wg.Wait()
}

// ServeHTTP upgrades the connection and registers the player.
func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	slog.Info("WebSocket connection established", "peer", r.RemoteAddr)

	ws := &wsStream{conn: conn, writeTimeout: h.writeTimeout}
	h.wg.Add(1)
	defer h.wg.Done()
	if !h.conns.Add(ws, conn) {
		slog.Info("Rejecting WebSocket connection during shutdown", "peer", r.RemoteAddr)
		return
	}
	defer h.conns.Remove(ws)

	if _, err := h.handler.OnConnect(r.Context(), ws); err != nil {
		slog.Error("Failed to register WebSocket player", "peer", r.RemoteAddr, "error", err)
		conn.Close()
		return
	}

	h.handleConnection(r.Context(), ws, r.RemoteAddr)
}

// handleConnection runs the read pump for the lifetime of the connection.
func (h *WebsocketHandler) handleConnection(ctx context.Context, ws *wsStream, peer string) {
	defer func() {
		slog.Info("Closing WebSocket connection and removing player", "peer", peer)
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
		defer cancel()
		logDisconnectError(h.handler.OnDisconnect(dctx, ws), peer)
		ws.conn.Close()
	}()

	// Incoming messages are ignored; the loop only exists to notice when the
	// client goes away.
	for {
		if _, _, err := ws.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket connection closed unexpectedly", "peer", peer, "error", err)
			}
			return
		}
	}
}

// wsStream sends control lines as WebSocket text messages.
type wsStream struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
}

func (s *wsStream) Send(ctx context.Context, line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok && s.writeTimeout > 0 {
		deadline, ok = time.Now().Add(s.writeTimeout), true
	}
	if ok {
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(line))
}
