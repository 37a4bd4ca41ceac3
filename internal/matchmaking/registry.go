package matchmaking

import "net/netip"

// Registry holds the currently connected players keyed by identity.
// It is not safe for concurrent use; the Coordinator serializes access.
type Registry struct {
	players map[string]*Player
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[string]*Player)}
}

// Insert adds p. The caller guarantees p.ID is not already registered.
func (r *Registry) Insert(p *Player) {
	r.players[p.ID] = p
}

// RemoveByStream removes and returns the player owning stream.
func (r *Registry) RemoveByStream(stream Stream) (*Player, bool) {
	for id, p := range r.players {
		if p.stream == stream {
			delete(r.players, id)
			return p, true
		}
	}
	return nil, false
}

// Get looks a player up by identity.
func (r *Registry) Get(id string) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id string) bool {
	_, ok := r.players[id]
	return ok
}

// SetAddress records addr for id unless an address is already set.
// It reports whether the address was newly set.
func (r *Registry) SetAddress(id string, addr netip.AddrPort) bool {
	p, ok := r.players[id]
	if !ok || !addr.IsValid() || p.addr.IsValid() {
		return false
	}
	p.addr = addr
	return true
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	return len(r.players)
}

// Each calls fn for every registered player in unspecified order.
func (r *Registry) Each(fn func(p *Player)) {
	for _, p := range r.players {
		fn(p)
	}
}
