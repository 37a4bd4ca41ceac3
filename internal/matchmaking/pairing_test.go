package matchmaking

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressedPlayer(t *testing.T, r *Registry, id, addr string) *Player {
	t.Helper()
	p := newPlayer(id, &nopStream{name: id})
	r.Insert(p)
	require.True(t, r.SetAddress(id, netip.MustParseAddrPort(addr)))
	p.state = StateQueued
	return p
}

func TestSweep_PairsInQueueOrder(t *testing.T) {
	r := NewRegistry()
	q := NewWaitingQueue()
	for i, id := range []string{"aaaaaaa", "bbbbbbb", "ccccccc", "ddddddd"} {
		addressedPlayer(t, r, id, netip.AddrPortFrom(netip.MustParseAddr("10.0.0.1"), uint16(5000+i)).String())
		q.Enqueue(id)
	}

	pairings, dropped := sweep(r, q)

	assert.Empty(t, dropped)
	require.Len(t, pairings, 2)
	assert.Equal(t, "aaaaaaa", pairings[0].First.ID)
	assert.Equal(t, "bbbbbbb", pairings[0].Second.ID)
	assert.Equal(t, "ccccccc", pairings[1].First.ID)
	assert.Equal(t, "ddddddd", pairings[1].Second.ID)
	assert.Equal(t, 0, q.Len())
	for _, p := range pairings {
		assert.Equal(t, StatePaired, p.First.State())
		assert.Equal(t, StatePaired, p.Second.State())
	}
}

func TestSweep_VanishedCandidateDropsPairAndContinues(t *testing.T) {
	r := NewRegistry()
	q := NewWaitingQueue()
	addressedPlayer(t, r, "bbbbbbb", "10.0.0.2:6000")
	addressedPlayer(t, r, "ccccccc", "10.0.0.3:7000")
	addressedPlayer(t, r, "ddddddd", "10.0.0.4:8000")

	// "gone000" left after being queued; its partner is discarded with it.
	for _, id := range []string{"gone000", "bbbbbbb", "ccccccc", "ddddddd"} {
		q.Enqueue(id)
	}

	var (
		pairings []Pairing
		dropped  []DroppedPair
	)
	require.NotPanics(t, func() { pairings, dropped = sweep(r, q) })

	require.Len(t, pairings, 1)
	assert.Equal(t, "ccccccc", pairings[0].First.ID)
	assert.Equal(t, "ddddddd", pairings[0].Second.ID)

	require.Len(t, dropped, 1)
	assert.Equal(t, DroppedPair{First: "gone000", Second: "bbbbbbb", Reason: ErrCandidateVanished}, dropped[0])

	survivor, _ := r.Get("bbbbbbb")
	assert.Equal(t, StateDiscarded, survivor.State(), "the survivor's state matches its absence from the queue")
	assert.False(t, q.Contains("bbbbbbb"), "the survivor is not re-enqueued")
}

func TestSweep_MissingAddressDropsPair(t *testing.T) {
	r := NewRegistry()
	q := NewWaitingQueue()
	r.Insert(newPlayer("aaaaaaa", &nopStream{}))
	addressedPlayer(t, r, "bbbbbbb", "10.0.0.2:6000")
	q.Enqueue("aaaaaaa")
	q.Enqueue("bbbbbbb")

	pairings, dropped := sweep(r, q)

	assert.Empty(t, pairings)
	assert.Equal(t, 0, q.Len())
	require.Len(t, dropped, 1)
	assert.ErrorIs(t, dropped[0].Reason, ErrMissingAddress)
	for _, id := range []string{"aaaaaaa", "bbbbbbb"} {
		p, _ := r.Get(id)
		assert.Equal(t, StateDiscarded, p.State(), id)
	}
}

func TestMatchLine(t *testing.T) {
	r := NewRegistry()
	v4 := addressedPlayer(t, r, "aaaaaaa", "10.0.0.2:6000")
	v6 := addressedPlayer(t, r, "bbbbbbb", "[2001:db8::1]:7000")

	assert.Equal(t, "1 10.0.0.2:6000", matchLine(1, v4))
	assert.Equal(t, "2 [2001:db8::1]:7000", matchLine(2, v6))
}
