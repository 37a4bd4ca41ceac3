package matchmaking

import (
	"context"
	"net/netip"
	"time"
)

// Stream is the coordinator's view of a player's control connection.
// The transport owns the connection; the coordinator only sends on it.
type Stream interface {
	Send(ctx context.Context, line string) error
}

// State is where a player is in the pairing lifecycle.
type State int

const (
	StateConnected State = iota
	StateQueued
	StatePaired
	// StateDiscarded is a player whose pair was dropped during a sweep. It
	// is no longer queued and is never queued again.
	StateDiscarded
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateQueued:
		return "queued"
	case StatePaired:
		return "paired"
	case StateDiscarded:
		return "discarded"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Player is a registered control connection.
type Player struct {
	ID          string
	ConnectedAt time.Time

	stream Stream
	state  State
	// addr is either the zero AddrPort (absent) or the first probe source.
	// Only Registry.SetAddress writes it.
	addr netip.AddrPort
}

func newPlayer(id string, stream Stream) *Player {
	return &Player{
		ID:          id,
		ConnectedAt: time.Now(),
		stream:      stream,
		state:       StateConnected,
	}
}

// Address returns the player's observed probe address, if known.
func (p *Player) Address() (netip.AddrPort, bool) {
	return p.addr, p.addr.IsValid()
}

// State returns the player's lifecycle state.
func (p *Player) State() State { return p.state }

// PlayerInfo is a copy of a player's public fields, safe to hand out of the
// coordinator.
type PlayerInfo struct {
	ID          string
	State       State
	Address     netip.AddrPort
	ConnectedAt time.Time
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{
		ID:          p.ID,
		State:       p.state,
		Address:     p.addr,
		ConnectedAt: p.ConnectedAt,
	}
}
