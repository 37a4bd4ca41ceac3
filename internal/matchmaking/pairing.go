package matchmaking

import (
	"errors"
	"log/slog"
)

var (
	// ErrUnknownPlayer is the drop reason for a probe naming no registered player.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrCandidateVanished is the drop reason for a pair whose member left before pairing.
	ErrCandidateVanished = errors.New("match candidate vanished")
	// ErrMissingAddress is the drop reason for a pair with a member that was
	// queued without an address, which should not happen.
	ErrMissingAddress = errors.New("queued player has no address")
)

// DroppedPair is a pair the sweep dequeued but could not match.
type DroppedPair struct {
	First  string
	Second string
	Reason error
}

// Pairing is a finalized decision to match First (role 1) with Second (role 2).
type Pairing struct {
	First  *Player
	Second *Player
}

// sweep drains the waiting queue two identities at a time. A pair whose
// members cannot both be resolved is dropped; its surviving members become
// StateDiscarded and are not put back on the queue.
func sweep(registry *Registry, queue *WaitingQueue) ([]Pairing, []DroppedPair) {
	var (
		pairings []Pairing
		dropped  []DroppedPair
	)
	for {
		aID, bID, ok := queue.DequeueTwo()
		if !ok {
			return pairings, dropped
		}

		a, aOK := registry.Get(aID)
		b, bOK := registry.Get(bID)
		if !aOK || !bOK {
			slog.Warn("Match candidate vanished, skipping pair",
				"first", aID, "firstPresent", aOK,
				"second", bID, "secondPresent", bOK,
				"error", ErrCandidateVanished)
			discard(a, b)
			dropped = append(dropped, DroppedPair{First: aID, Second: bID, Reason: ErrCandidateVanished})
			continue
		}

		_, aAddr := a.Address()
		_, bAddr := b.Address()
		if !aAddr || !bAddr {
			for _, p := range []*Player{a, b} {
				if _, ok := p.Address(); !ok {
					slog.Error("Player in waiting queue has no address", "playerID", p.ID, "error", ErrMissingAddress)
				}
			}
			discard(a, b)
			dropped = append(dropped, DroppedPair{First: aID, Second: bID, Reason: ErrMissingAddress})
			continue
		}

		a.state = StatePaired
		b.state = StatePaired
		pairings = append(pairings, Pairing{First: a, Second: b})
	}
}

func discard(players ...*Player) {
	for _, p := range players {
		if p != nil {
			p.state = StateDiscarded
		}
	}
}

// matchLine is the control-channel line telling a player its role and its
// peer's address.
func matchLine(role int, peer *Player) string {
	addr, _ := peer.Address()
	return roleString(role) + " " + addr.String()
}

func roleString(role int) string {
	if role == 1 {
		return "1"
	}
	return "2"
}
