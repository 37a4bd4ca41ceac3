package events

import (
	"time"

	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

// MatchFoundEvent is the payload published for every match.
type MatchFoundEvent struct {
	MatchID   string          `json:"matchID"`
	PlayerIDs []string        `json:"playerIDs"`
	Players   []MatchedPlayer `json:"players"`
	MatchedAt time.Time       `json:"matchedAt"`
}

// MatchedPlayer is one member of a match as seen by downstream consumers.
type MatchedPlayer struct {
	ID        string `json:"id"`
	Role      int    `json:"role"`
	Address   string `json:"address"` // The probe source address reported to the peer.
	Delivered bool   `json:"delivered"`
}

// NewMatchFoundEvent builds the event for m.
func NewMatchFoundEvent(m matchmaking.Match) MatchFoundEvent {
	members := []matchmaking.MatchMember{m.First, m.Second}
	event := MatchFoundEvent{
		MatchID:   m.ID,
		PlayerIDs: make([]string, 0, len(members)),
		Players:   make([]MatchedPlayer, 0, len(members)),
		MatchedAt: m.MatchedAt.UTC(),
	}
	for _, member := range members {
		event.PlayerIDs = append(event.PlayerIDs, member.ID)
		event.Players = append(event.Players, MatchedPlayer{
			ID:        member.ID,
			Role:      member.Role,
			Address:   member.Address.String(),
			Delivered: member.Delivered,
		})
	}
	return event
}
