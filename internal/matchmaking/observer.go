package matchmaking

import (
	"context"
	"net/netip"
	"time"
)

// MatchMember is one side of a completed match.
type MatchMember struct {
	ID      string
	Role    int
	Address netip.AddrPort
	// Delivered is true if the match line reached this member's stream.
	Delivered bool
}

// Match describes a pairing after its notifications were attempted.
type Match struct {
	ID        string
	First     MatchMember
	Second    MatchMember
	MatchedAt time.Time
}

// Observer receives coordinator events.
//
// PlayerConnected, PlayerDisconnected, ProbeDropped and PairDropped are
// called from the coordinator goroutine and must not block. MatchFound is called once both
// deliveries of a match have finished, outside the coordinator goroutine.
type Observer interface {
	PlayerConnected(id string)
	PlayerDisconnected(id string, last State)
	ProbeDropped(reason error)
	PairDropped(pair DroppedPair)
	MatchFound(ctx context.Context, m Match)
}

// NopObserver implements Observer with no-ops. Embed it to implement only
// the hooks you need.
type NopObserver struct{}

func (NopObserver) PlayerConnected(string) {}
func (NopObserver) PlayerDisconnected(string, State) {}
func (NopObserver) ProbeDropped(error) {}
func (NopObserver) PairDropped(DroppedPair) {}
func (NopObserver) MatchFound(context.Context, Match) {}
