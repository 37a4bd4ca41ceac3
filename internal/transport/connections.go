package transport

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

// ConnectionManager safely tracks live control connections so they can be
// closed together on shutdown.
type ConnectionManager struct {
	connections sync.Map // A thread-safe map: map[matchmaking.Stream]io.Closer
	closed      atomic.Bool
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{}
}

// Add tracks conn under stream. Once CloseAll has run, conn is closed
// immediately and Add reports false.
func (cm *ConnectionManager) Add(stream matchmaking.Stream, conn io.Closer) bool {
	cm.connections.Store(stream, conn)
	if cm.closed.Load() {
		cm.connections.Delete(stream)
		conn.Close()
		return false
	}
	return true
}

func (cm *ConnectionManager) Remove(stream matchmaking.Stream) {
	cm.connections.Delete(stream)
}

func (cm *ConnectionManager) Len() int {
	n := 0
	cm.connections.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CloseAll closes every tracked connection and any added later.
func (cm *ConnectionManager) CloseAll() {
	cm.closed.Store(true)
	cm.connections.Range(func(_, conn any) bool {
		conn.(io.Closer).Close()
		return true
	})
}
